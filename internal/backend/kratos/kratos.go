// Package kratos is an auth provider backed by Ory Kratos native (API)
// flows. The Kratos session token is the access token kept in the cookie.
//
// Identity traits are expected to follow this schema:
//
//	{ "email": string, "name": string, "handle": string, "avatar": string }
//
// with email as the password identifier.
package kratos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	kratosclient "github.com/ory/kratos-client-go"

	"github.com/sakif/tsubuyaki/internal/backend"
	"github.com/sakif/tsubuyaki/internal/model"
)

// Kratos UI message ids we translate into backend sentinels.
const (
	msgIDInvalidCredentials = 4000006
	msgIDDuplicateIdentity  = 4000007
)

var _ backend.AuthProvider = (*Provider)(nil)

type Provider struct {
	api    *kratosclient.APIClient
	logger *slog.Logger
}

// New creates a provider for the Kratos public endpoint at publicURL.
func New(publicURL string, httpClient *http.Client, logger *slog.Logger) *Provider {
	cfg := kratosclient.NewConfiguration()
	cfg.Servers = kratosclient.ServerConfigurations{{URL: publicURL}}
	cfg.HTTPClient = httpClient
	cfg.DefaultHeader = map[string]string{"Accept": "application/json"}

	return &Provider{
		api:    kratosclient.NewAPIClient(cfg),
		logger: logger.With("component", "kratos"),
	}
}

func (p *Provider) CurrentIdentity(ctx context.Context) (*model.Identity, error) {
	token := backend.AccessTokenFromContext(ctx)
	if token == "" {
		return nil, nil
	}

	session, httpResp, err := p.api.FrontendAPI.ToSession(ctx).XSessionToken(token).Execute()
	if err != nil {
		return nil, fmt.Errorf("kratos: whoami (status %d): %w", statusOf(httpResp), err)
	}
	if session.Active != nil && !*session.Active {
		return nil, errors.New("kratos: session is not active")
	}
	if session.Identity == nil {
		return nil, errors.New("kratos: session has no identity")
	}
	return identityFrom(session.Identity), nil
}

func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*model.AuthSession, error) {
	flow, httpResp, err := p.api.FrontendAPI.CreateNativeLoginFlow(ctx).Execute()
	if err != nil {
		return nil, fmt.Errorf("kratos: creating login flow (status %d): %w", statusOf(httpResp), err)
	}

	body := kratosclient.NewUpdateLoginFlowWithPasswordMethod(email, "password", password)
	result, httpResp, err := p.api.FrontendAPI.
		UpdateLoginFlow(ctx).
		Flow(flow.Id).
		UpdateLoginFlowBody(kratosclient.UpdateLoginFlowWithPasswordMethodAsUpdateLoginFlowBody(body)).
		Execute()
	if err != nil {
		p.logger.Debug("login flow rejected", "flow_id", flow.Id, "status", statusOf(httpResp))
		return nil, flowError(err)
	}

	if result.SessionToken == nil || *result.SessionToken == "" {
		return nil, errors.New("kratos: login returned no session token")
	}
	if result.Session.Identity == nil {
		return nil, errors.New("kratos: login session has no identity")
	}

	var expiresAt time.Time
	if result.Session.ExpiresAt != nil {
		expiresAt = *result.Session.ExpiresAt
	}

	return &model.AuthSession{
		AccessToken: *result.SessionToken,
		ExpiresAt:   expiresAt,
		Identity:    *identityFrom(result.Session.Identity),
	}, nil
}

func (p *Provider) SignUp(ctx context.Context, req backend.SignUpRequest) (*model.SignUpResult, error) {
	flow, httpResp, err := p.api.FrontendAPI.CreateNativeRegistrationFlow(ctx).Execute()
	if err != nil {
		return nil, fmt.Errorf("kratos: creating registration flow (status %d): %w", statusOf(httpResp), err)
	}

	traits := map[string]any{
		"email":  req.Email,
		"name":   req.Metadata.Name,
		"handle": req.Metadata.Handle,
		"avatar": req.Metadata.Avatar,
	}
	body := kratosclient.NewUpdateRegistrationFlowWithPasswordMethod("password", req.Password, traits)

	result, httpResp, err := p.api.FrontendAPI.
		UpdateRegistrationFlow(ctx).
		Flow(flow.Id).
		UpdateRegistrationFlowBody(kratosclient.UpdateRegistrationFlowWithPasswordMethodAsUpdateRegistrationFlowBody(body)).
		Execute()
	if err != nil {
		p.logger.Debug("registration flow rejected", "flow_id", flow.Id, "status", statusOf(httpResp))
		return nil, flowError(err)
	}

	p.logger.Info("identity registered", "identity_id", result.Identity.Id)

	res := &model.SignUpResult{Identity: identityFrom(&result.Identity)}
	if result.SessionToken != nil {
		res.AccessToken = *result.SessionToken
	}
	return res, nil
}

func (p *Provider) SignOut(ctx context.Context) error {
	token := backend.AccessTokenFromContext(ctx)
	if token == "" {
		return nil
	}

	httpResp, err := p.api.FrontendAPI.
		PerformNativeLogout(ctx).
		PerformNativeLogoutBody(*kratosclient.NewPerformNativeLogoutBody(token)).
		Execute()
	if err != nil {
		return fmt.Errorf("kratos: logout (status %d): %w", statusOf(httpResp), err)
	}
	return nil
}

func identityFrom(id *kratosclient.Identity) *model.Identity {
	out := &model.Identity{ID: id.Id}
	traits, ok := id.Traits.(map[string]any)
	if !ok {
		return out
	}
	str := func(key string) string {
		s, _ := traits[key].(string)
		return s
	}
	out.Email = str("email")
	out.Metadata = model.IdentityMetadata{
		Name:   str("name"),
		Handle: str("handle"),
		Avatar: str("avatar"),
	}
	return out
}

// flowBody is the part of a failed flow response that carries messages.
type flowBody struct {
	UI struct {
		Messages []uiText `json:"messages"`
		Nodes    []struct {
			Messages []uiText `json:"messages"`
		} `json:"nodes"`
	} `json:"ui"`
	Error *struct {
		Message string `json:"message"`
		Reason  string `json:"reason"`
	} `json:"error"`
}

type uiText struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
	Type string `json:"type"`
}

// flowError extracts the first error message from a rejected flow and
// wraps it in a *backend.AuthError. Field-level node messages are checked
// after flow-level ones.
func flowError(err error) error {
	var apiErr *kratosclient.GenericOpenAPIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("kratos: %w", err)
	}

	var body flowBody
	if jsonErr := json.Unmarshal(apiErr.Body(), &body); jsonErr != nil {
		return &backend.AuthError{Message: apiErr.Error(), Err: err}
	}

	texts := body.UI.Messages
	for _, n := range body.UI.Nodes {
		texts = append(texts, n.Messages...)
	}
	for _, t := range texts {
		if t.Type != "error" {
			continue
		}
		var sentinel error = err
		switch t.ID {
		case msgIDInvalidCredentials:
			sentinel = backend.ErrInvalidCredentials
		case msgIDDuplicateIdentity:
			sentinel = backend.ErrAlreadyRegistered
		}
		return &backend.AuthError{Message: t.Text, Err: sentinel}
	}

	if body.Error != nil {
		msg := body.Error.Reason
		if msg == "" {
			msg = body.Error.Message
		}
		if msg != "" {
			return &backend.AuthError{Message: msg, Err: err}
		}
	}
	return &backend.AuthError{Message: apiErr.Error(), Err: err}
}

func statusOf(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
