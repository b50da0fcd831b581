package appserver

import "context"

// AppServerFacet is the JSON-RPC method surface this engine exposes to an
// app-server collaborator (§6). It is a Go interface, not a transport: a
// collaborator wires a concrete stdio/socket framing on top of Dispatcher,
// which routes a decoded JSONRPCRequest to one of these methods.
type AppServerFacet interface {
	Initialize(ctx context.Context, params InitializeParams) (InitializeResult, error)
	NewConversation(ctx context.Context, params NewConversationParams) (NewConversationResult, error)
	SendUserMessage(ctx context.Context, params SendUserMessageParams) (SendUserMessageResult, error)
	AddConversationListener(ctx context.Context, params AddConversationListenerParams) (AddConversationListenerResult, error)
	ArchiveConversation(ctx context.Context, params ArchiveConversationParams) (ArchiveConversationResult, error)
	ForkConversation(ctx context.Context, params ForkConversationParams) (ForkConversationResult, error)
	ThreadRead(ctx context.Context, params ThreadReadParams) (ThreadReadResult, error)
	ThreadRollback(ctx context.Context, params ThreadRollbackParams) (ThreadRollbackResult, error)
	ThreadResume(ctx context.Context, params ThreadResumeParams) (ThreadResumeResult, error)
	TurnSteer(ctx context.Context, params TurnSteerParams) (TurnSteerResult, error)
	ListModels(ctx context.Context, params ListModelsParams) (ListModelsResult, error)
	ListThreads(ctx context.Context, params ListThreadsParams) (ListThreadsResult, error)
}

// methodAliases maps every wire method name §6 lists (including the
// dual newConversation/thread/start-style naming) onto one canonical
// AppServerFacet call. A transport implementation dispatches by looking
// up the request's Method here.
var methodAliases = map[string]string{
	"initialize":               "Initialize",
	"newConversation":          "NewConversation",
	"thread/start":             "NewConversation",
	"sendUserMessage":          "SendUserMessage",
	"turn/start":               "SendUserMessage",
	"addConversationListener":  "AddConversationListener",
	"archiveConversation":      "ArchiveConversation",
	"thread/archive":           "ArchiveConversation",
	"forkConversation":         "ForkConversation",
	"thread/fork":              "ForkConversation",
	"thread/read":              "ThreadRead",
	"thread/rollback":          "ThreadRollback",
	"thread/resume":            "ThreadResume",
	"turn/steer":               "TurnSteer",
	"listModels":               "ListModels",
	"model/list":               "ListModels",
	"thread/list":              "ListThreads",
}

// CanonicalMethod resolves a wire method name to the AppServerFacet call
// it maps to, or ("", false) if the name isn't recognized.
func CanonicalMethod(wireMethod string) (string, bool) {
	name, ok := methodAliases[wireMethod]
	return name, ok
}
