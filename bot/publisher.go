package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// maxUploadBytes is the posting service's hard size cap.
const maxUploadBytes = 100 << 20 // 100MB

const publishAttempts = 3

var (
	// ErrVideoNotFound is returned when the artifact to publish is missing.
	ErrVideoNotFound = errors.New("video file not found")
	// ErrVideoTooLarge is returned when the artifact exceeds the upload cap.
	ErrVideoTooLarge = errors.New("video file exceeds upload size limit")
	// ErrPublishFailed is returned after all upload attempts are exhausted.
	ErrPublishFailed = errors.New("publish failed after all attempts")
)

// SocialClient is the minimal surface the Publisher needs from the posting
// service: authenticate, upload, and read back recent posts for
// verification.
type SocialClient interface {
	Login(ctx context.Context, username, password string) error
	UploadVideo(ctx context.Context, path, caption string) error
	LastPosts(ctx context.Context, n int) ([]string, error)
}

// Credentials identifies the posting account.
type Credentials struct {
	Username string
	Password string
}

// session is the authenticated handle to the account. It exists only while
// the Publisher believes the login is good; any upload or verification
// error discards it, forcing a fresh login on the next attempt.
type session struct {
	username string
	since    time.Time
}

// Publisher owns the account session and drives the bounded
// upload-settle-verify retry loop. It never writes the ledger; outcomes are
// reported to the caller.
type Publisher struct {
	client SocialClient
	creds  Credentials
	log    *slog.Logger

	sess *session // nil means no authenticated session

	// Pauses and the size cap are fields so tests can shrink them.
	RetryPause  time.Duration // between attempts
	SettleDelay time.Duration // after upload, before verification
	MaxBytes    int64
}

// NewPublisher creates a Publisher. Login happens lazily on the first
// Publish call.
func NewPublisher(client SocialClient, creds Credentials, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{
		client:      client,
		creds:       creds,
		log:         log,
		RetryPause:  5 * time.Second,
		SettleDelay: 10 * time.Second,
		MaxBytes:    maxUploadBytes,
	}
}

// Active reports whether an authenticated session currently exists.
func (p *Publisher) Active() bool {
	return p.sess != nil
}

// Publish uploads the video with the given caption. Preconditions (file
// exists, size within cap) are checked before any network traffic. Up to
// three attempts are made; each is upload, settle delay, then verification
// by reading the account's most recent post — an upload that cannot be
// verified does not count as success. A nil return means a verified post.
func (p *Publisher) Publish(ctx context.Context, videoPath, caption string) error {
	info, err := os.Stat(videoPath)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrVideoNotFound, videoPath)
	}
	if info.Size() > p.MaxBytes {
		return fmt.Errorf("%w: %d bytes", ErrVideoTooLarge, info.Size())
	}

	if p.creds.Username == "" || p.creds.Password == "" {
		return errors.New("posting credentials not configured")
	}

	// Initial login failure fails the whole call: the session stays absent
	// and no upload is attempted. Re-login happens inside the retry loop
	// only after an attempt discarded the session.
	if err := p.ensureSession(ctx); err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= publishAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, p.RetryPause); err != nil {
				return err
			}
		}
		p.log.Info("upload attempt", "attempt", attempt, "of", publishAttempts, "video", videoPath)

		if err := p.attempt(ctx, videoPath, caption); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.sess = nil
			lastErr = err
			p.log.Warn("upload attempt failed", "attempt", attempt, "error", err)
			continue
		}
		p.log.Info("post verified", "video", videoPath)
		return nil
	}
	return fmt.Errorf("%w: %v", ErrPublishFailed, lastErr)
}

// attempt performs one upload-settle-verify unit against an ensured session.
func (p *Publisher) attempt(ctx context.Context, videoPath, caption string) error {
	if err := p.ensureSession(ctx); err != nil {
		return err
	}
	if err := p.client.UploadVideo(ctx, videoPath, caption); err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	if err := sleep(ctx, p.SettleDelay); err != nil {
		return err
	}
	posts, err := p.client.LastPosts(ctx, 1)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	if len(posts) == 0 {
		return errors.New("verify: upload reported success but post not found on account")
	}
	return nil
}

func (p *Publisher) ensureSession(ctx context.Context) error {
	if p.sess != nil {
		return nil
	}
	p.log.Info("logging in", "username", p.creds.Username)
	if err := p.client.Login(ctx, p.creds.Username, p.creds.Password); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	p.sess = &session{username: p.creds.Username, since: time.Now()}
	return nil
}

// sleep waits for d or until ctx is done, whichever comes first, checking
// in one-second steps so even long pauses stay interruptible.
func sleep(ctx context.Context, d time.Duration) error {
	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}
		step := time.Second
		if remaining < step {
			step = remaining
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(step):
		}
	}
}
