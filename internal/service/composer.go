package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/tsubuyaki/internal/apperror"
	"github.com/sakif/tsubuyaki/internal/backend"
	"github.com/sakif/tsubuyaki/internal/model"
)

// postInput carries the composer's validation rules. validator counts
// string length in runes, which is what the 140 limit is measured in.
type postInput struct {
	Content string `validate:"required,max=140"`
}

// ComposeResult is a successful post: the stored row, the refreshed feed,
// and the instruction to clear the composer input. Profile is the author's
// profile when it was provisioned while posting.
type ComposeResult struct {
	Post       *model.Post
	Profile    *model.Profile
	Feed       []PostNode
	ClearInput bool
}

// Composer creates posts on behalf of the session's identity.
//
// Concurrent submissions of the same text by the same identity (a double
// click, a resent form) share one backend insert through the singleflight
// group. Sequential identical submissions are separate posts.
type Composer struct {
	profiles backend.ProfileStore
	posts    backend.PostStore
	feed     *FeedLoader
	validate *validator.Validate
	inflight flightGroup
	logger   *slog.Logger
}

func NewComposer(profiles backend.ProfileStore, posts backend.PostStore, feed *FeedLoader, logger *slog.Logger) *Composer {
	return &Composer{
		profiles: profiles,
		posts:    posts,
		feed:     feed,
		validate: validator.New(),
		logger:   logger.With("component", "composer"),
	}
}

// ValidatePostText trims text and checks it before CreatePost is called.
//
// Empty text is an ErrValidation with an empty message: the UI ignores the
// submit without a notice. Over-long text carries MsgPostTooLong.
func (c *Composer) ValidatePostText(text string) (string, error) {
	in := postInput{Content: strings.TrimSpace(text)}

	err := c.validate.Struct(in)
	if err == nil {
		return in.Content, nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Tag() == "max" {
		return "", apperror.ValidationFailed("content", MsgPostTooLong)
	}
	return "", apperror.ValidationFailed("content", "")
}

// CreatePost stores text as a new post by sess's identity.
//
// Length is the caller's job (ValidatePostText); the stores enforce it
// again on their side. A store-side ErrValidation is returned as is.
//
// STEPS:
//  1. No identity → Unauthenticated, no backend call
//  2. No profile → provision one (failure logged, posting continues)
//  3. Insert the post → on failure Unavailable, the input is kept
//  4. Reload the feed
//
// The insert is shared by concurrent identical submissions and finishes
// even if the submitting request is cancelled. Every caller whose session
// has no profile yet receives the provisioned one.
func (c *Composer) CreatePost(ctx context.Context, sess *Session, text string) (*ComposeResult, error) {
	if !sess.LoggedIn() {
		return nil, apperror.Unauthenticated(MsgLoginRequired)
	}

	identity, profile := sess.Identity, sess.Profile
	key := identity.ID + "\x00" + text
	v, shared, err := c.inflight.do(ctx, key, func(ctx context.Context) (any, error) {
		return c.createPost(ctx, identity, profile, text)
	})
	if shared {
		c.logger.Info("duplicate submission collapsed", slog.String("identity_id", identity.ID))
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, fmt.Errorf("service: creating post: %w", err)
		}
		return nil, err
	}

	res := v.(*ComposeResult)
	if sess.Profile == nil && res.Profile != nil {
		sess.Profile = res.Profile
	}
	return res, nil
}

func (c *Composer) createPost(ctx context.Context, identity *model.Identity, profile *model.Profile, text string) (*ComposeResult, error) {
	if profile == nil {
		p, err := c.upsertProfile(ctx, identity)
		if err != nil {
			c.logger.Warn("profile provisioning failed, posting anyway",
				slog.String("identity_id", identity.ID),
				slog.String("error", err.Error()),
			)
		}
		profile = p
	}

	post := &model.Post{UserID: identity.ID, Content: text}
	if err := c.posts.InsertPost(ctx, post); err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			return nil, fmt.Errorf("service: creating post: %w", err)
		}
		c.logger.Error("inserting post failed",
			slog.String("identity_id", identity.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service: creating post: %w", apperror.Unavailable(MsgPostFailed))
	}

	c.logger.Info("post created",
		slog.String("post_id", post.ID),
		slog.String("identity_id", post.UserID),
	)

	return &ComposeResult{
		Post:       post,
		Profile:    profile,
		Feed:       c.feed.Load(ctx),
		ClearInput: true,
	}, nil
}

// EnsureProfile upserts a profile synthesized from the identity's metadata
// and stores it on the session. Running it twice for one identity leaves a
// single row with the latest values.
func (c *Composer) EnsureProfile(ctx context.Context, sess *Session) error {
	if !sess.LoggedIn() {
		return apperror.Unauthenticated(MsgLoginRequired)
	}

	profile, err := c.upsertProfile(ctx, sess.Identity)
	if err != nil {
		return err
	}

	sess.Profile = profile
	return nil
}

func (c *Composer) upsertProfile(ctx context.Context, identity *model.Identity) (*model.Profile, error) {
	profile := ProfileFromIdentity(identity)
	if err := c.profiles.UpsertProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("service: upserting profile %s: %w", profile.ID, err)
	}
	return profile, nil
}

// ProfileFromIdentity fills name, handle and avatar from metadata. A
// missing handle becomes "user" plus the first five characters of the id.
func ProfileFromIdentity(id *model.Identity) *model.Profile {
	handle := id.Metadata.Handle
	if handle == "" {
		handle = model.DefaultHandle + prefix(id.ID, 5)
	}
	return &model.Profile{
		ID:     id.ID,
		Name:   firstNonEmpty(id.Metadata.Name, model.DefaultName),
		Handle: handle,
		Avatar: firstNonEmpty(id.Metadata.Avatar, model.DefaultAvatar),
	}
}

// prefix returns the first n runes of s.
func prefix(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}
