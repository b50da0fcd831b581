package approval

// NetworkProtocol enumerates the protocols a blocked outbound request may
// be re-raised for.
type NetworkProtocol string

const (
	ProtocolHTTP      NetworkProtocol = "http"
	ProtocolHTTPS     NetworkProtocol = "https"
	ProtocolSocks5TCP NetworkProtocol = "socks5_tcp"
	ProtocolSocks5UDP NetworkProtocol = "socks5_udp"
)

// NetworkApprovalContext carries the details of a blocked outbound request
// re-raised as an approval (§4.D "network approvals").
type NetworkApprovalContext struct {
	Host     string
	Protocol NetworkProtocol
}
