package scanner

import (
	"context"
	"errors"
	"io"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/hirochachacha/go-smb2"

	"github.com/bastionsec/sharescan/internal/auth/ntlm"
	"github.com/bastionsec/sharescan/pkg/models"
	"github.com/bastionsec/sharescan/pkg/patterns"
)

// file entries as go-smb2 would report them.
func testFile(name string, size int64) *smb2.FileStat {
	return &smb2.FileStat{
		FileName:      name,
		EndOfFile:     size,
		LastWriteTime: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func testDir(name string) *smb2.FileStat {
	return &smb2.FileStat{FileName: name, FileAttributes: models.FileAttributeDirectory}
}

func testHidden(name string) *smb2.FileStat {
	return &smb2.FileStat{FileName: name, FileAttributes: models.FileAttributeHidden}
}

// fakeShare implements shareFS in memory. Paths key the dirs map the way
// the walker joins them: "." for the root, "docs", "docs/hr" below it.
// A path listed in hangOn blocks ReadDir until the share context is done.
type fakeShare struct {
	dirs      map[string][]os.FileInfo
	listErr   map[string]error
	createErr error
	hangOn    string

	ctx     context.Context
	created []string
	removed []string
	umount  bool
}

func (f *fakeShare) WithContext(ctx context.Context) shareFS {
	f.ctx = ctx
	return f
}

func (f *fakeShare) ReadDir(path string) ([]os.FileInfo, error) {
	if f.hangOn != "" && path == f.hangOn {
		<-f.ctx.Done()
		return nil, f.ctx.Err()
	}
	if err := f.listErr[path]; err != nil {
		return nil, err
	}
	entries, ok := f.dirs[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return entries, nil
}

func (f *fakeShare) Create(name string) (io.Closer, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, name)
	return io.NopCloser(strings.NewReader("")), nil
}

func (f *fakeShare) Remove(name string) error {
	f.removed = append(f.removed, name)
	return nil
}

func (f *fakeShare) Umount() error {
	f.umount = true
	return nil
}

// fakeSession implements session over a set of fakeShares.
type fakeSession struct {
	shares   []string
	listErr  error
	mounts   map[string]*fakeShare
	mountErr map[string]error

	loggedOff bool
}

func (f *fakeSession) ListShares() ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.shares, nil
}

func (f *fakeSession) Mount(name string) (shareFS, error) {
	if err := f.mountErr[name]; err != nil {
		return nil, err
	}
	sh, ok := f.mounts[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return sh, nil
}

func (f *fakeSession) Logoff() error {
	f.loggedOff = true
	return nil
}

func testRegistry() *patterns.Registry {
	return patterns.New([]models.Pattern{
		{Pattern: `password`, Category: "credential", Description: "Password file"},
		{Pattern: `\.kdbx$`, Category: "credential", Description: "KeePass database"},
		{Pattern: `id_rsa`, Category: "key", Description: "SSH private key"},
	})
}

func testScanner(t *testing.T, cfg *Config, sess session) *Scanner {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	s, err := New(cfg, testRegistry())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.lookup = func(context.Context, string) ([]string, error) {
		return []string{"10.0.0.5"}, nil
	}
	s.dial = func(context.Context, string, ntlm.Credentials, time.Duration) (session, error) {
		return sess, nil
	}
	return s
}

func TestConfigValidate(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	if cfg.Port != 445 || cfg.MaxDepth != 5 || cfg.MaxRootEntries != 20 {
		t.Errorf("defaults: port %d, depth %d, root entries %d", cfg.Port, cfg.MaxDepth, cfg.MaxRootEntries)
	}
	if cfg.ShareTimeout != 30*time.Second || cfg.HostTimeout != 5*time.Minute {
		t.Errorf("defaults: share timeout %s, host timeout %s", cfg.ShareTimeout, cfg.HostTimeout)
	}
	if len(cfg.ExcludedShares) != 3 {
		t.Errorf("default exclusions = %v", cfg.ExcludedShares)
	}

	if _, err := New(&Config{Port: -1}, nil); err == nil {
		t.Error("expected error for negative port")
	}
}

func TestResolve(t *testing.T) {
	s := testScanner(t, nil, nil)

	tests := []struct {
		name     string
		hostname string
		want     string
		wantErr  error
	}{
		{"empty hostname", "", "", ErrEmptyHostname},
		{"empty list artifact", "[]", "", ErrEmptyHostname},
		{"ipv4 literal", "10.1.2.3", "10.1.2.3", nil},
		{"ipv6 literal", "fe80::1", "fe80::1", nil},
		{"dns name", "ws01.corp.example.com", "10.0.0.5", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.resolve(context.Background(), tt.hostname)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if got != tt.want {
				t.Errorf("resolve = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("lookup failure", func(t *testing.T) {
		s := testScanner(t, nil, nil)
		s.lookup = func(context.Context, string) ([]string, error) {
			return nil, errors.New("no such host")
		}
		if _, err := s.resolve(context.Background(), "gone.corp.example.com"); err == nil {
			t.Error("expected error")
		}
	})
}

func TestConnect(t *testing.T) {
	ctx := context.Background()

	t.Run("anonymous session preferred", func(t *testing.T) {
		sess := &fakeSession{}
		s := testScanner(t, nil, sess)

		var dialed []ntlm.Credentials
		s.dial = func(_ context.Context, _ string, creds ntlm.Credentials, _ time.Duration) (session, error) {
			dialed = append(dialed, creds)
			return sess, nil
		}

		_, mode, err := s.connect(ctx, "10.0.0.5:445")
		if err != nil {
			t.Fatalf("connect: %v", err)
		}
		if mode != AuthAnonymous {
			t.Errorf("mode = %q, want anonymous", mode)
		}
		if len(dialed) != 1 || !dialed[0].Anonymous() {
			t.Errorf("dialed = %v", dialed)
		}
	})

	t.Run("falls back to domain account", func(t *testing.T) {
		sess := &fakeSession{}
		creds := ntlm.Credentials{Domain: "CORP", Username: "svc-scan", Password: "hunter2"}
		s := testScanner(t, &Config{Credentials: creds}, sess)

		var dialed []ntlm.Credentials
		s.dial = func(_ context.Context, _ string, c ntlm.Credentials, _ time.Duration) (session, error) {
			dialed = append(dialed, c)
			if c.Anonymous() {
				return nil, errors.New("logon failure")
			}
			return sess, nil
		}

		_, mode, err := s.connect(ctx, "10.0.0.5:445")
		if err != nil {
			t.Fatalf("connect: %v", err)
		}
		if mode != AuthDomain {
			t.Errorf("mode = %q, want domain", mode)
		}
		if len(dialed) != 2 || dialed[1].Username != "svc-scan" {
			t.Errorf("dialed = %v", dialed)
		}
	})

	t.Run("tcp failure is not retried", func(t *testing.T) {
		creds := ntlm.Credentials{Domain: "CORP", Username: "svc-scan", Password: "hunter2"}
		s := testScanner(t, &Config{Credentials: creds}, nil)

		var dials int
		s.dial = func(context.Context, string, ntlm.Credentials, time.Duration) (session, error) {
			dials++
			return nil, &connectError{err: errors.New("connection refused")}
		}

		_, _, err := s.connect(ctx, "10.0.0.5:445")
		if err == nil {
			t.Fatal("expected error")
		}
		if dials != 1 {
			t.Errorf("dials = %d, want 1", dials)
		}
		if !strings.Contains(err.Error(), "connect") {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("anonymous-only credentials fail closed", func(t *testing.T) {
		s := testScanner(t, nil, nil)

		var dials int
		s.dial = func(context.Context, string, ntlm.Credentials, time.Duration) (session, error) {
			dials++
			return nil, errors.New("logon failure")
		}

		_, _, err := s.connect(ctx, "10.0.0.5:445")
		if err == nil {
			t.Fatal("expected error")
		}
		if dials != 1 {
			t.Errorf("dials = %d, want 1", dials)
		}
		if !strings.Contains(err.Error(), "authentication failed") {
			t.Errorf("err = %v", err)
		}
	})
}

func TestScanHost(t *testing.T) {
	public := &fakeShare{dirs: map[string][]os.FileInfo{
		".": {
			testFile("report.pdf", 2048),
			testDir("docs"),
			testHidden("desktop.ini"),
		},
		"docs": {
			testFile("passwords.xlsx", 512),
		},
	}}
	sess := &fakeSession{
		shares:   []string{"ADMIN$", "IPC$", "print$", "Public", "Finance"},
		mounts:   map[string]*fakeShare{"Public": public},
		mountErr: map[string]error{"Finance": os.ErrPermission},
	}
	s := testScanner(t, nil, sess)

	result := s.ScanHost(context.Background(), "fs01.corp.example.com")
	if result.Err != nil {
		t.Fatalf("ScanHost: %v", result.Err)
	}
	if result.Address != "10.0.0.5" || result.Auth != AuthAnonymous {
		t.Errorf("address = %q, auth = %q", result.Address, result.Auth)
	}
	if !sess.loggedOff {
		t.Error("session was not logged off")
	}
	if len(result.Shares) != 2 {
		t.Fatalf("len(Shares) = %d, want 2 (admin shares excluded)", len(result.Shares))
	}

	pub := result.Shares[0]
	if pub.ShareName != "Public" || pub.AccessLevel != models.AccessFull.String() {
		t.Errorf("Public = %s %s", pub.ShareName, pub.AccessLevel)
	}
	if pub.TotalFiles != 2 || pub.TotalDirs != 1 || pub.HiddenFiles != 1 {
		t.Errorf("counts = %d files, %d dirs, %d hidden", pub.TotalFiles, pub.TotalDirs, pub.HiddenFiles)
	}
	if len(pub.RootFiles) != 3 {
		t.Fatalf("len(RootFiles) = %d, want 3", len(pub.RootFiles))
	}
	if pub.RootFiles[1].Kind != models.KindDirectory.String() || pub.RootFiles[1].Position != 1 {
		t.Errorf("RootFiles[1] = %+v", pub.RootFiles[1])
	}
	if len(pub.SensitiveFiles) != 1 {
		t.Fatalf("len(SensitiveFiles) = %d, want 1", len(pub.SensitiveFiles))
	}
	if f := pub.SensitiveFiles[0]; f.FilePath != "docs/passwords.xlsx" || f.DetectionType != "credential" {
		t.Errorf("finding = %+v", f)
	}
	if !public.umount {
		t.Error("share was not unmounted")
	}

	fin := result.Shares[1]
	if fin.AccessLevel != models.AccessDenied.String() || fin.ErrorMessage == "" {
		t.Errorf("Finance = %s %q", fin.AccessLevel, fin.ErrorMessage)
	}
}

func TestScanHostErrors(t *testing.T) {
	t.Run("unresolvable host", func(t *testing.T) {
		s := testScanner(t, nil, nil)
		s.lookup = func(context.Context, string) ([]string, error) {
			return nil, errors.New("no such host")
		}
		result := s.ScanHost(context.Background(), "gone.corp.example.com")
		if result.Err == nil || len(result.Shares) != 0 {
			t.Errorf("result = %+v", result)
		}
	})

	t.Run("empty hostname", func(t *testing.T) {
		s := testScanner(t, nil, nil)
		result := s.ScanHost(context.Background(), "[]")
		if !errors.Is(result.Err, ErrEmptyHostname) {
			t.Errorf("err = %v", result.Err)
		}
	})

	t.Run("share listing failure", func(t *testing.T) {
		sess := &fakeSession{listErr: errors.New("rpc unavailable")}
		s := testScanner(t, nil, sess)
		result := s.ScanHost(context.Background(), "10.0.0.5")
		if result.Err == nil || !strings.Contains(result.Err.Error(), "list shares") {
			t.Errorf("err = %v", result.Err)
		}
	})

	t.Run("host deadline keeps finished shares", func(t *testing.T) {
		fast := &fakeShare{dirs: map[string][]os.FileInfo{
			".": {testFile("readme.txt", 64)},
		}}
		stuck := &fakeShare{hangOn: "."}
		sess := &fakeSession{
			shares: []string{"S1", "S2", "S3"},
			mounts: map[string]*fakeShare{"S1": fast, "S2": stuck, "S3": fast},
		}
		s := testScanner(t, &Config{HostTimeout: 50 * time.Millisecond}, sess)

		result := s.ScanHost(context.Background(), "10.0.0.5")
		if !errors.Is(result.Err, ErrHostDeadline) {
			t.Fatalf("err = %v, want host deadline", result.Err)
		}
		if len(result.Shares) != 2 {
			t.Fatalf("len(Shares) = %d, want 2 (S3 never started)", len(result.Shares))
		}
		if result.Shares[0].AccessLevel != models.AccessFull.String() {
			t.Errorf("S1 = %s", result.Shares[0].AccessLevel)
		}
		if result.Shares[1].AccessLevel != models.AccessError.String() {
			t.Errorf("S2 = %s", result.Shares[1].AccessLevel)
		}
	})

	t.Run("cancelled run is reported as cancellation", func(t *testing.T) {
		sess := &fakeSession{shares: []string{"S1"}, mounts: map[string]*fakeShare{}}
		s := testScanner(t, nil, sess)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result := s.ScanHost(ctx, "10.0.0.5")
		if !errors.Is(result.Err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", result.Err)
		}
		if len(result.Shares) != 0 {
			t.Errorf("len(Shares) = %d, want 0", len(result.Shares))
		}
	})
}

func TestScanShareAccessLevels(t *testing.T) {
	scan := func(t *testing.T, sess *fakeSession, share string) models.Share {
		t.Helper()
		s := testScanner(t, nil, sess)
		return s.scanShare(context.Background(), sess, "fs01", share)
	}

	t.Run("full access", func(t *testing.T) {
		sh := &fakeShare{dirs: map[string][]os.FileInfo{".": {}}}
		sess := &fakeSession{mounts: map[string]*fakeShare{"Public": sh}}

		record := scan(t, sess, "Public")
		if record.AccessLevel != models.AccessFull.String() {
			t.Fatalf("level = %s", record.AccessLevel)
		}
		if len(sh.created) != 1 || len(sh.removed) != 1 || sh.created[0] != sh.removed[0] {
			t.Fatalf("probe files: created %v, removed %v", sh.created, sh.removed)
		}
		if !regexp.MustCompile(`^test_\d{14}\.tmp$`).MatchString(sh.created[0]) {
			t.Errorf("probe filename = %q", sh.created[0])
		}
	})

	t.Run("read only", func(t *testing.T) {
		sh := &fakeShare{
			dirs:      map[string][]os.FileInfo{".": {testFile("a.txt", 1)}},
			createErr: os.ErrPermission,
		}
		sess := &fakeSession{mounts: map[string]*fakeShare{"Public": sh}}

		record := scan(t, sess, "Public")
		if record.AccessLevel != models.AccessReadOnly.String() {
			t.Errorf("level = %s", record.AccessLevel)
		}
		if record.TotalFiles != 1 {
			t.Errorf("TotalFiles = %d", record.TotalFiles)
		}
	})

	t.Run("denied via permission error", func(t *testing.T) {
		sess := &fakeSession{mountErr: map[string]error{"Secret": os.ErrPermission}}
		record := scan(t, sess, "Secret")
		if record.AccessLevel != models.AccessDenied.String() || record.ErrorMessage == "" {
			t.Errorf("record = %s %q", record.AccessLevel, record.ErrorMessage)
		}
	})

	t.Run("denied via nt status", func(t *testing.T) {
		sess := &fakeSession{mountErr: map[string]error{
			"Secret": &smb2.ResponseError{Code: ntStatusAccessDenied},
		}}
		record := scan(t, sess, "Secret")
		if record.AccessLevel != models.AccessDenied.String() {
			t.Errorf("level = %s", record.AccessLevel)
		}
	})

	t.Run("error", func(t *testing.T) {
		sess := &fakeSession{mountErr: map[string]error{"Gone": errors.New("share removed")}}
		record := scan(t, sess, "Gone")
		if record.AccessLevel != models.AccessError.String() || record.ErrorMessage == "" {
			t.Errorf("record = %s %q", record.AccessLevel, record.ErrorMessage)
		}
	})

	t.Run("root listing error", func(t *testing.T) {
		sh := &fakeShare{listErr: map[string]error{".": errors.New("io timeout")}}
		sess := &fakeSession{mounts: map[string]*fakeShare{"Flaky": sh}}
		record := scan(t, sess, "Flaky")
		if record.AccessLevel != models.AccessError.String() {
			t.Errorf("level = %s", record.AccessLevel)
		}
	})
}

func TestInventoryLimit(t *testing.T) {
	var entries []os.FileInfo
	for i := 0; i < 25; i++ {
		entries = append(entries, testFile("file"+string(rune('a'+i))+".txt", int64(i)))
	}
	sh := &fakeShare{dirs: map[string][]os.FileInfo{".": entries}}
	sess := &fakeSession{mounts: map[string]*fakeShare{"Big": sh}}
	s := testScanner(t, nil, sess)

	record := s.scanShare(context.Background(), sess, "fs01", "Big")
	if record.TotalFiles != 25 {
		t.Errorf("TotalFiles = %d, want 25", record.TotalFiles)
	}
	if len(record.RootFiles) != 20 {
		t.Fatalf("len(RootFiles) = %d, want 20", len(record.RootFiles))
	}
	for i, rf := range record.RootFiles {
		if rf.Position != i {
			t.Fatalf("RootFiles[%d].Position = %d", i, rf.Position)
		}
	}
}

func TestWalk(t *testing.T) {
	t.Run("depth limit", func(t *testing.T) {
		sh := &fakeShare{dirs: map[string][]os.FileInfo{
			".":   {testDir("a")},
			"a":   {testFile("passwords.txt", 10), testDir("b")},
			"a/b": {testFile("id_rsa", 10)},
		}}
		sess := &fakeSession{mounts: map[string]*fakeShare{"Public": sh}}
		s := testScanner(t, &Config{MaxDepth: 1}, sess)

		record := s.scanShare(context.Background(), sess, "fs01", "Public")
		if len(record.SensitiveFiles) != 1 {
			t.Fatalf("findings = %+v", record.SensitiveFiles)
		}
		if record.SensitiveFiles[0].FilePath != "a/passwords.txt" {
			t.Errorf("path = %q", record.SensitiveFiles[0].FilePath)
		}
	})

	t.Run("denied subtree is skipped", func(t *testing.T) {
		sh := &fakeShare{
			dirs: map[string][]os.FileInfo{
				".": {testDir("secret"), testFile("id_rsa", 10)},
			},
			listErr: map[string]error{"secret": os.ErrPermission},
		}
		sess := &fakeSession{mounts: map[string]*fakeShare{"Public": sh}}
		s := testScanner(t, nil, sess)

		record := s.scanShare(context.Background(), sess, "fs01", "Public")
		if len(record.SensitiveFiles) != 1 || record.SensitiveFiles[0].DetectionType != "key" {
			t.Errorf("findings = %+v", record.SensitiveFiles)
		}
	})

	t.Run("one row per category", func(t *testing.T) {
		sh := &fakeShare{dirs: map[string][]os.FileInfo{
			".": {testFile("password-id_rsa.kdbx", 10)},
		}}
		sess := &fakeSession{mounts: map[string]*fakeShare{"Public": sh}}
		s := testScanner(t, nil, sess)

		record := s.scanShare(context.Background(), sess, "fs01", "Public")
		if len(record.SensitiveFiles) != 2 {
			t.Fatalf("findings = %+v", record.SensitiveFiles)
		}
		seen := map[string]bool{}
		for _, f := range record.SensitiveFiles {
			seen[f.DetectionType] = true
		}
		if !seen["credential"] || !seen["key"] {
			t.Errorf("categories = %v", seen)
		}
	})

	t.Run("share deadline keeps partial findings", func(t *testing.T) {
		sh := &fakeShare{
			dirs: map[string][]os.FileInfo{
				".": {testFile("passwords.txt", 10), testDir("docs"), testFile("id_rsa", 10)},
			},
			hangOn: "docs",
		}
		sess := &fakeSession{mounts: map[string]*fakeShare{"Slow": sh}}
		s := testScanner(t, &Config{ShareTimeout: 30 * time.Millisecond}, sess)

		record := s.scanShare(context.Background(), sess, "fs01", "Slow")
		if record.AccessLevel != models.AccessFull.String() {
			t.Errorf("level = %s", record.AccessLevel)
		}
		if len(record.SensitiveFiles) != 1 || record.SensitiveFiles[0].FileName != "passwords.txt" {
			t.Errorf("findings = %+v", record.SensitiveFiles)
		}
	})

	t.Run("nil registry disables the walk", func(t *testing.T) {
		sh := &fakeShare{dirs: map[string][]os.FileInfo{
			".": {testFile("passwords.txt", 10)},
		}}
		sess := &fakeSession{mounts: map[string]*fakeShare{"Public": sh}}
		s, err := New(&Config{}, nil)
		if err != nil {
			t.Fatalf("New: %v", err)
		}

		record := s.scanShare(context.Background(), sess, "fs01", "Public")
		if record.AccessLevel != models.AccessFull.String() {
			t.Errorf("level = %s", record.AccessLevel)
		}
		if len(record.SensitiveFiles) != 0 {
			t.Errorf("findings = %+v", record.SensitiveFiles)
		}
	})
}
