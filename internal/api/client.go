package api

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/taskdex/internal/convert"
	"github.com/and161185/taskdex/internal/model"
	"github.com/and161185/taskdex/internal/service"
)

// Client is a typed client for the Taskdex service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a client connection.
func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

func (c *Client) call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// SignUp registers an account and returns its id.
func (c *Client) SignUp(ctx context.Context, username, password string) (uuid.UUID, error) {
	in, err := convert.CredentialsToStruct(convert.Credentials{Username: username, Password: password})
	if err != nil {
		return uuid.Nil, err
	}
	out, err := c.call(ctx, MethodSignUp, in)
	if err != nil {
		return uuid.Nil, err
	}
	return convert.UserIDFromStruct(out)
}

// SignIn exchanges credentials for an access token.
func (c *Client) SignIn(ctx context.Context, username, password string) (model.Tokens, error) {
	in, err := convert.CredentialsToStruct(convert.Credentials{Username: username, Password: password})
	if err != nil {
		return model.Tokens{}, err
	}
	out, err := c.call(ctx, MethodSignIn, in)
	if err != nil {
		return model.Tokens{}, err
	}
	return convert.TokensFromStruct(out)
}

// AddTask creates a task.
func (c *Client) AddTask(ctx context.Context, title string, p model.Priority) (model.Task, error) {
	in, err := convert.NewTaskToStruct(convert.NewTask{Title: title, Priority: p})
	if err != nil {
		return model.Task{}, err
	}
	out, err := c.call(ctx, MethodAddTask, in)
	if err != nil {
		return model.Task{}, err
	}
	return convert.TaskFromStruct(out)
}

// ListTasks returns the caller's tasks newest first.
func (c *Client) ListTasks(ctx context.Context) ([]model.Task, error) {
	out, err := c.call(ctx, MethodListTasks, convert.Empty())
	if err != nil {
		return nil, err
	}
	return convert.TasksFromStruct(out)
}

// ToggleTask flips a task's completion state.
func (c *Client) ToggleTask(ctx context.Context, id uuid.UUID) (service.ToggleResult, error) {
	in, err := convert.TaskIDToStruct(id)
	if err != nil {
		return service.ToggleResult{}, err
	}
	out, err := c.call(ctx, MethodToggleTask, in)
	if err != nil {
		return service.ToggleResult{}, err
	}
	return convert.ToggleFromStruct(out)
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id uuid.UUID) error {
	in, err := convert.TaskIDToStruct(id)
	if err != nil {
		return err
	}
	_, err = c.call(ctx, MethodDeleteTask, in)
	return err
}

// Stats returns the caller's progression snapshot.
func (c *Client) Stats(ctx context.Context) (service.Progress, error) {
	out, err := c.call(ctx, MethodGetStats, convert.Empty())
	if err != nil {
		return service.Progress{}, err
	}
	return convert.ProgressFromStruct(out)
}

// Offers lists container types with the caller's eligibility.
func (c *Client) Offers(ctx context.Context) ([]service.Offer, error) {
	out, err := c.call(ctx, MethodListOffers, convert.Empty())
	if err != nil {
		return nil, err
	}
	return convert.OffersFromStruct(out), nil
}

// Redeem opens a container of the given kind.
func (c *Client) Redeem(ctx context.Context, kind string) (service.RedeemOutcome, error) {
	in, err := convert.KindToStruct(kind)
	if err != nil {
		return service.RedeemOutcome{}, err
	}
	out, err := c.call(ctx, MethodRedeem, in)
	if err != nil {
		return service.RedeemOutcome{}, err
	}
	return convert.RedeemFromStruct(out)
}

// Collection lists acquired items newest first.
func (c *Client) Collection(ctx context.Context) ([]model.CollectibleItem, error) {
	out, err := c.call(ctx, MethodListCollection, convert.Empty())
	if err != nil {
		return nil, err
	}
	return convert.ItemsFromStruct(out)
}

// Summary returns collection counts.
func (c *Client) Summary(ctx context.Context) (model.CollectionSummary, error) {
	out, err := c.call(ctx, MethodCollectionSummary, convert.Empty())
	if err != nil {
		return model.CollectionSummary{}, err
	}
	return convert.SummaryFromStruct(out), nil
}
