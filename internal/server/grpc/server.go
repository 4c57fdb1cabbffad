// Package grpcserver exposes the Taskdex gRPC API handlers.
package grpcserver

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/taskdex/internal/api"
	"github.com/and161185/taskdex/internal/container"
	"github.com/and161185/taskdex/internal/convert"
	"github.com/and161185/taskdex/internal/errs"
	"github.com/and161185/taskdex/internal/service"
)

// Services groups the domain services the server dispatches to.
type Services struct {
	Auth       service.AuthService
	Tasks      service.TaskService
	Progress   service.ProgressService
	Rewards    service.RewardService
	Collection service.CollectionService
}

// Server wires services into gRPC handlers.
type Server struct {
	svc     Services
	signKey []byte
}

var _ api.TaskdexServer = (*Server)(nil)

// New constructs a gRPC server with injected services.
func New(svc Services, signKey []byte) *Server {
	return &Server{svc: svc, signKey: signKey}
}

// --- Auth ---

// SignUp creates a new user account.
func (s *Server) SignUp(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	c, err := convert.CredentialsFromStruct(req)
	if err != nil {
		return nil, toStatus("sign up", err)
	}
	id, err := s.svc.Auth.SignUp(ctx, c.Username, c.Password)
	if err != nil {
		return nil, toStatus("sign up", err)
	}
	return encode(convert.UserIDToStruct(id))
}

func remoteIP(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return ""
}

// SignIn authenticates a user and returns an access token.
func (s *Server) SignIn(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	c, err := convert.CredentialsFromStruct(req)
	if err != nil {
		return nil, toStatus("sign in", err)
	}
	tok, err := s.svc.Auth.SignIn(ctx, c.Username, c.Password, remoteIP(ctx))
	if err != nil {
		return nil, toStatus("sign in", err)
	}
	return encode(convert.TokensToStruct(tok))
}

// --- Tasks ---

// AddTask creates a task with a frozen XP reward.
func (s *Server) AddTask(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	n, err := convert.NewTaskFromStruct(req)
	if err != nil {
		return nil, toStatus("add task", err)
	}
	t, err := s.svc.Tasks.Create(ctx, userID, n.Title, n.Priority)
	if err != nil {
		return nil, toStatus("add task", err)
	}
	return encode(convert.TaskToStruct(t))
}

// ListTasks returns the caller's tasks.
func (s *Server) ListTasks(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	ts, err := s.svc.Tasks.List(ctx, userID)
	if err != nil {
		return nil, toStatus("list tasks", err)
	}
	return encode(convert.TasksToStruct(ts))
}

// ToggleTask flips completion and reports any XP gained.
func (s *Server) ToggleTask(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	taskID, err := convert.TaskIDFromStruct(req)
	if err != nil {
		return nil, toStatus("toggle task", err)
	}
	res, err := s.svc.Tasks.Toggle(ctx, userID, taskID)
	if err != nil {
		return nil, toStatus("toggle task", err)
	}
	return encode(convert.ToggleToStruct(res))
}

// DeleteTask removes a task without touching progression.
func (s *Server) DeleteTask(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	taskID, err := convert.TaskIDFromStruct(req)
	if err != nil {
		return nil, toStatus("delete task", err)
	}
	if err := s.svc.Tasks.Delete(ctx, userID, taskID); err != nil {
		return nil, toStatus("delete task", err)
	}
	return convert.Empty(), nil
}

// --- Progression and rewards ---

// GetStats returns the caller's progression snapshot.
func (s *Server) GetStats(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.svc.Progress.Progress(ctx, userID)
	if err != nil {
		return nil, toStatus("get stats", err)
	}
	return encode(convert.ProgressToStruct(p))
}

// ListOffers returns every container type with the caller's eligibility.
func (s *Server) ListOffers(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	offers, err := s.svc.Rewards.Offers(ctx, userID)
	if err != nil {
		return nil, toStatus("list offers", err)
	}
	return encode(convert.OffersToStruct(offers))
}

// Redeem opens a container. Unmet gates come back as a rejected outcome.
func (s *Server) Redeem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	out, err := s.svc.Rewards.Redeem(ctx, userID, container.Kind(convert.KindFromStruct(req)))
	if err != nil {
		return nil, toStatus("redeem", err)
	}
	return encode(convert.RedeemToStruct(out))
}

// --- Collection ---

// ListCollection returns acquired items newest first.
func (s *Server) ListCollection(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.svc.Collection.List(ctx, userID)
	if err != nil {
		return nil, toStatus("list collection", err)
	}
	return encode(convert.ItemsToStruct(items))
}

// CollectionSummary returns per-rarity counts.
func (s *Server) CollectionSummary(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	sum, err := s.svc.Collection.Summary(ctx, userID)
	if err != nil {
		return nil, toStatus("collection summary", err)
	}
	return encode(convert.SummaryToStruct(sum))
}

// --- helpers ---

func requireUser(ctx context.Context) (uuid.UUID, error) {
	id, ok := UserIDFromCtx(ctx)
	if !ok {
		return uuid.Nil, status.Error(codes.Unauthenticated, "no auth")
	}
	return id, nil
}

func encode(s *structpb.Struct, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode: %v", err)
	}
	return s, nil
}

// toStatus maps domain errors onto gRPC codes.
func toStatus(op string, err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, errs.ErrValidation), errors.Is(err, errs.ErrUnknownContainer):
		code = codes.InvalidArgument
	case errors.Is(err, errs.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, errs.ErrForbidden):
		code = codes.PermissionDenied
	case errors.Is(err, errs.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, "bad credentials")
	case errors.Is(err, errs.ErrAlreadyExists):
		code = codes.AlreadyExists
	case errors.Is(err, errs.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, "rate limited")
	case errors.Is(err, errs.ErrVersionConflict):
		code = codes.Aborted
	case errors.Is(err, errs.ErrPersistFailed):
		code = codes.Unavailable
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	default:
		return status.Errorf(codes.Internal, "%s: internal error", op)
	}
	return status.Errorf(code, "%s: %v", op, err)
}

// tokenLeeway absorbs clock skew between the issuer and this server.
const tokenLeeway = 30 * time.Second

// userIDFromToken extracts "authorization: Bearer <JWT>", verifies HS256 and
// returns sub as UUID.
func (s *Server) userIDFromToken(ctx context.Context) (uuid.UUID, error) {
	tok, err := bearerTokenFromMD(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(tok, &claims, func(*jwt.Token) (any, error) {
		return s.signKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(tokenLeeway),
	)
	if err != nil || !parsed.Valid {
		return uuid.Nil, errors.New("invalid token")
	}

	id, err := uuid.FromString(claims.Subject)
	if err != nil {
		return uuid.Nil, errors.New("bad subject")
	}
	return id, nil
}

func bearerTokenFromMD(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errors.New("no metadata")
	}
	for _, v := range md.Get("authorization") {
		v = strings.TrimSpace(v)
		if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
			t := strings.TrimSpace(v[7:])
			if t != "" {
				return t, nil
			}
		}
	}
	return "", errors.New("no bearer token")
}
