package convert

import (
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/taskdex/internal/errs"
	"github.com/and161185/taskdex/internal/model"
)

// Credentials is the payload of SignUp and SignIn.
type Credentials struct {
	Username string
	Password string
}

// CredentialsToStruct builds a SignUp/SignIn request.
func CredentialsToStruct(c Credentials) (*structpb.Struct, error) {
	return toStruct(map[string]any{"username": c.Username, "password": c.Password})
}

// CredentialsFromStruct parses a SignUp/SignIn request.
func CredentialsFromStruct(s *structpb.Struct) (Credentials, error) {
	f := fieldsOf(s)
	c := Credentials{Username: f.str("username"), Password: f.str("password")}
	if c.Username == "" || c.Password == "" {
		return Credentials{}, fmt.Errorf("%w: username and password are required", errs.ErrValidation)
	}
	return c, nil
}

// UserIDToStruct encodes a SignUp response.
func UserIDToStruct(id uuid.UUID) (*structpb.Struct, error) {
	return toStruct(map[string]any{"user_id": id.String()})
}

// UserIDFromStruct decodes a SignUp response.
func UserIDFromStruct(s *structpb.Struct) (uuid.UUID, error) {
	return fieldsOf(s).uuid("user_id")
}

// TokensToStruct encodes a SignIn response.
func TokensToStruct(t model.Tokens) (*structpb.Struct, error) {
	return toStruct(map[string]any{"access_token": t.AccessToken, "expires_at": stamp(t.ExpiresAt)})
}

// TokensFromStruct decodes a SignIn response.
func TokensFromStruct(s *structpb.Struct) (model.Tokens, error) {
	f := fieldsOf(s)
	exp, err := f.time("expires_at")
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{AccessToken: f.str("access_token"), ExpiresAt: exp}, nil
}

// NewTask is the payload of AddTask.
type NewTask struct {
	Title    string
	Priority model.Priority
}

// NewTaskToStruct builds an AddTask request.
func NewTaskToStruct(n NewTask) (*structpb.Struct, error) {
	return toStruct(map[string]any{"title": n.Title, "priority": string(n.Priority)})
}

// NewTaskFromStruct parses an AddTask request. A missing priority means medium.
func NewTaskFromStruct(s *structpb.Struct) (NewTask, error) {
	f := fieldsOf(s)
	n := NewTask{Title: f.str("title"), Priority: model.PriorityMedium}
	if raw := strings.TrimSpace(f.str("priority")); raw != "" {
		p, err := model.ParsePriority(raw)
		if err != nil {
			return NewTask{}, fmt.Errorf("%w: %v", errs.ErrValidation, err)
		}
		n.Priority = p
	}
	return n, nil
}

// TaskIDToStruct builds a ToggleTask/DeleteTask request.
func TaskIDToStruct(id uuid.UUID) (*structpb.Struct, error) {
	return toStruct(map[string]any{"task_id": id.String()})
}

// TaskIDFromStruct parses a ToggleTask/DeleteTask request.
func TaskIDFromStruct(s *structpb.Struct) (uuid.UUID, error) {
	id, err := fieldsOf(s).uuid("task_id")
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	return id, nil
}

// KindToStruct builds a Redeem request.
func KindToStruct(kind string) (*structpb.Struct, error) {
	return toStruct(map[string]any{"kind": kind})
}

// KindFromStruct parses a Redeem request.
func KindFromStruct(s *structpb.Struct) string {
	return strings.ToLower(strings.TrimSpace(fieldsOf(s).str("kind")))
}
