package scanner

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"time"

	"github.com/hirochachacha/go-smb2"

	"github.com/bastionsec/sharescan/internal/auth/ntlm"
)

// session is an authenticated SMB connection to one host.
type session interface {
	ListShares() ([]string, error)
	Mount(name string) (shareFS, error)
	Logoff() error
}

// shareFS is the subset of share filesystem operations the scanner uses.
type shareFS interface {
	WithContext(ctx context.Context) shareFS
	ReadDir(path string) ([]os.FileInfo, error)
	Create(name string) (io.Closer, error)
	Remove(name string) error
	Umount() error
}

type (
	dialFunc   func(ctx context.Context, addr string, creds ntlm.Credentials, connTimeout time.Duration) (session, error)
	lookupFunc func(ctx context.Context, host string) ([]string, error)
)

// connectError marks a failure before SMB authentication, so the host
// scanner does not retry it with the second credential set.
type connectError struct {
	err error
}

func (e *connectError) Error() string {
	return e.err.Error()
}

func (e *connectError) Unwrap() error {
	return e.err
}

// dialSMB opens a TCP connection and negotiates an SMB session on it.
func dialSMB(ctx context.Context, addr string, creds ntlm.Credentials, connTimeout time.Duration) (session, error) {
	d := net.Dialer{Timeout: connTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &connectError{err: err}
	}

	dialer := &smb2.Dialer{
		Initiator: &smb2.NTLMInitiator{
			User:     creds.Username,
			Password: creds.Password,
			Hash:     creds.Hash,
			Domain:   creds.Domain,
		},
	}

	sess, err := dialer.DialContext(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &smbSession{sess: sess, conn: conn}, nil
}

// smbSession adapts *smb2.Session to the session interface.
type smbSession struct {
	sess *smb2.Session
	conn net.Conn
}

func (s *smbSession) ListShares() ([]string, error) {
	return s.sess.ListSharenames()
}

func (s *smbSession) Mount(name string) (shareFS, error) {
	fs, err := s.sess.Mount(name)
	if err != nil {
		return nil, err
	}
	return &smbShare{fs: fs}, nil
}

func (s *smbSession) Logoff() error {
	err := s.sess.Logoff()
	s.conn.Close()
	return err
}

// smbShare adapts *smb2.Share to the shareFS interface.
type smbShare struct {
	fs *smb2.Share
}

func (s *smbShare) WithContext(ctx context.Context) shareFS {
	return &smbShare{fs: s.fs.WithContext(ctx)}
}

func (s *smbShare) ReadDir(path string) ([]os.FileInfo, error) {
	return s.fs.ReadDir(path)
}

func (s *smbShare) Create(name string) (io.Closer, error) {
	return s.fs.Create(name)
}

func (s *smbShare) Remove(name string) error {
	return s.fs.Remove(name)
}

func (s *smbShare) Umount() error {
	return s.fs.Umount()
}

// STATUS_ACCESS_DENIED.
const ntStatusAccessDenied uint32 = 0xC0000022

// isAccessDenied classifies an SMB failure as a permission refusal.
func isAccessDenied(err error) bool {
	if errors.Is(err, os.ErrPermission) {
		return true
	}
	var re *smb2.ResponseError
	if errors.As(err, &re) {
		return re.Code == ntStatusAccessDenied
	}
	return false
}
