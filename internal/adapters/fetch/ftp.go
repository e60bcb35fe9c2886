package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/developmentseed/stac-tiler/internal/domain"
)

// FTPSource reads item documents over FTP. One connection per read; the
// document fetch cache makes repeat connects rare.
type FTPSource struct {
	timeout  time.Duration
	username string
	password string
}

// FTPConfig holds FTP source configuration.
type FTPConfig struct {
	Timeout  time.Duration
	Username string // Empty: anonymous login
	Password string
}

// NewFTPSource creates a new FTP source.
func NewFTPSource(cfg FTPConfig) *FTPSource {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Username == "" {
		cfg.Username = "anonymous"
		cfg.Password = "anonymous"
	}

	return &FTPSource{
		timeout:  cfg.Timeout,
		username: cfg.Username,
		password: cfg.Password,
	}
}

// Read downloads the document at the given ftp:// URL.
func (s *FTPSource) Read(ctx context.Context, location string) ([]byte, error) {
	u, err := url.Parse(location)
	if err != nil || u.Host == "" || u.Path == "" {
		return nil, fmt.Errorf("%w: malformed ftp location %q", domain.ErrInvalidInput, location)
	}

	addr := u.Host
	if u.Port() == "" {
		addr += ":21"
	}

	conn, err := ftp.Dial(addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(s.timeout))
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer func() { _ = conn.Quit() }()

	if err := conn.Login(s.username, s.password); err != nil {
		return nil, fmt.Errorf("ftp login to %s: %w", addr, err)
	}

	resp, err := conn.Retr(u.Path)
	if err != nil {
		var proto *textproto.Error
		if errors.As(err, &proto) && proto.Code == ftp.StatusFileUnavailable {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, location)
		}
		return nil, fmt.Errorf("retrieving %s: %w", location, err)
	}
	defer func() { _ = resp.Close() }()

	return io.ReadAll(resp)
}
