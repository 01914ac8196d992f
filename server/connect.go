package server

import (
	"context"
	"errors"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/flora/kernel"
	"github.com/tailored-agentic-units/flora/observability"
)

// ChatProcedure is the Connect procedure path of the chat RPC. Requests
// and responses are google.protobuf.Struct values shaped like the JSON
// bodies of POST /chat.
const ChatProcedure = "/flora.v1.ChatService/Chat"

func (s *Server) connectHandler() (string, http.Handler) {
	return ChatProcedure, connect.NewUnaryHandler(ChatProcedure, s.chatRPC,
		connect.WithReadMaxBytes(int(s.cfg.MaxBodyBytes)),
	)
}

func (s *Server) chatRPC(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	fields := req.Msg.GetFields()
	message := fields["message"].GetStringValue()
	sessionID := fields["session_id"].GetStringValue()
	if message == "" || sessionID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New(MissingFieldsMessage))
	}

	result, err := s.runner.Run(ctx, sessionID, message)
	if err != nil {
		s.observer.OnEvent(ctx, observability.NewEvent(EventError, observability.LevelError, "server.rpc", map[string]any{
			"request_id": RequestIDFrom(ctx),
			"error":      err.Error(),
		}))
		if errors.Is(err, kernel.ErrAgentTimeout) {
			return nil, connect.NewError(connect.CodeUnavailable, errors.New(UnavailableMessage))
		}
		return nil, connect.NewError(connect.CodeInternal, errors.New(InternalErrorMessage))
	}

	out, err := structpb.NewStruct(map[string]any{"response": result.Response})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, errors.New(InternalErrorMessage))
	}
	return connect.NewResponse(out), nil
}
