package plugin

import (
	"context"
	"time"

	"github.com/cedricziel/readwhere/internal/comic"
	"github.com/cedricziel/readwhere/internal/errors"
	"github.com/cedricziel/readwhere/internal/reader"
)

// ReaderCapability is implemented by plugins that open local book
// files.
type ReaderCapability interface {
	// SupportedExtensions lists file extensions (with dot, lowercase)
	// the plugin may handle. Used as the registry's cheap prefilter.
	SupportedExtensions() []string

	// SupportedMimeTypes lists MIME types the plugin handles.
	SupportedMimeTypes() []string

	// CanHandleFile probes whether the file at path is actually this
	// plugin's format. May perform I/O (e.g. sniff archive magic).
	CanHandleFile(ctx context.Context, path string) (bool, error)

	// ParseMetadata builds the book description without keeping the
	// archive open.
	ParseMetadata(ctx context.Context, path string) (*comic.Book, error)

	// OpenBook opens a reading session. The caller owns the returned
	// reader and must dispose it.
	OpenBook(ctx context.Context, path string) (*reader.Reader, error)

	// ExtractCover returns the cover image bytes, or nil when the book
	// has none.
	ExtractCover(ctx context.Context, path string) ([]byte, error)
}

// CatalogInfo identifies a remote catalog a browsing plugin may serve.
type CatalogInfo struct {
	ID       string
	Type     string // e.g. "opds", "webdav"
	Name     string
	ServerURL string
}

// CatalogFeatures declares what a catalog plugin supports.
type CatalogFeatures struct {
	Browse     bool
	Search     bool
	Download   bool
	Pagination bool
}

// CatalogEntry is one row of a browse or search result: either a
// navigation node or a downloadable file.
type CatalogEntry struct {
	ID        string
	Title     string
	Path      string
	IsDir     bool
	MimeType  string
	SizeBytes int64
	Updated   *time.Time
}

// BrowseResult is a page of catalog entries.
type BrowseResult struct {
	Entries    []CatalogEntry
	Page       int
	TotalPages int
}

// ValidationResult reports whether a catalog configuration is usable.
type ValidationResult struct {
	OK      bool
	Message string
}

// ProgressFunc reports transferred and total bytes during a download.
type ProgressFunc func(transferred, total int64)

// CatalogBrowsingCapability is implemented by plugins that browse
// remote catalogs (OPDS, WebDAV, vendor APIs).
type CatalogBrowsingCapability interface {
	Features() CatalogFeatures
	CanHandleCatalog(info CatalogInfo) bool
	Validate(ctx context.Context, info CatalogInfo) (*ValidationResult, error)
	Browse(ctx context.Context, info CatalogInfo, path string, page int) (*BrowseResult, error)
	Search(ctx context.Context, info CatalogInfo, query string, page int) (*BrowseResult, error)
	Download(ctx context.Context, info CatalogInfo, entry CatalogEntry, localPath string, onProgress ProgressFunc) error
}

// AuthType names a supported authentication mechanism.
type AuthType string

const (
	AuthBasic  AuthType = "basic"
	AuthAPIKey AuthType = "apikey"
	AuthOAuth  AuthType = "oauth"
)

// Credentials is an opaque key/value credential bundle.
type Credentials map[string]string

// AccountInfo describes an authenticated account.
type AccountInfo struct {
	UserID      string
	DisplayName string
	Token       string
	ExpiresAt   *time.Time
}

// OAuthSession tracks a pending device/browser OAuth flow.
type OAuthSession struct {
	VerificationURL string
	UserCode        string
	PollToken       string
}

// AccountCapability is implemented by plugins that authenticate against
// remote services.
type AccountCapability interface {
	AuthTypes() []AuthType
	Authenticate(ctx context.Context, serverURL string, creds Credentials) (*AccountInfo, error)
	StartOAuth(ctx context.Context, serverURL string) (*OAuthSession, error)
	PollOAuth(ctx context.Context, session *OAuthSession) (*AccountInfo, error)
	Logout(ctx context.Context, serverURL string) error
	RefreshToken(ctx context.Context, serverURL string, account *AccountInfo) (*AccountInfo, error)
	ValidateCredentials(ctx context.Context, serverURL string, creds Credentials) (bool, error)
}

// Progress is one book's reading position for sync purposes.
type Progress struct {
	BookID    string
	Position  float64 // 0..1
	Completed bool
	UpdatedAt time.Time
}

// ProgressSyncCapability is implemented by plugins that push and pull
// reading progress to a remote service.
type ProgressSyncCapability interface {
	SyncProgress(ctx context.Context, p Progress) error
	FetchProgress(ctx context.Context, bookID string) (*Progress, error)
	SyncBatch(ctx context.Context, items []Progress) error
}

// MarkComplete records a book as finished via SyncProgress.
func MarkComplete(ctx context.Context, c ProgressSyncCapability, bookID string) error {
	return c.SyncProgress(ctx, Progress{BookID: bookID, Position: 1, Completed: true, UpdatedAt: time.Now()})
}

// ClearProgress resets a book's position via SyncProgress.
func ClearProgress(ctx context.Context, c ProgressSyncCapability, bookID string) error {
	return c.SyncProgress(ctx, Progress{BookID: bookID, Position: 0, UpdatedAt: time.Now()})
}

// SyncBatchSequential is the default batch fallback: items sync one by
// one, stopping at the first failure.
func SyncBatchSequential(ctx context.Context, c ProgressSyncCapability, items []Progress) error {
	for _, item := range items {
		if err := c.SyncProgress(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// SyncAll pushes a batch through the plugin's SyncBatch when it has
// one, falling back to the sequential default when the plugin reports
// the operation as unsupported.
func SyncAll(ctx context.Context, c ProgressSyncCapability, items []Progress) error {
	err := c.SyncBatch(ctx, items)
	if errors.IsKind(err, errors.KindUnsupportedOperation) {
		return SyncBatchSequential(ctx, c, items)
	}
	return err
}

// errUnsupported builds the stable error for capability methods a
// plugin leaves unimplemented. Callers can attempt-and-catch without
// reflection because the default is an explicit failure, never a
// missing method.
func errUnsupported(op string) error {
	return errors.Newf(errors.KindUnsupportedOperation, "%s is not supported by this plugin", op)
}

// UnimplementedCatalog provides failing defaults for the optional
// CatalogBrowsingCapability methods. Embed it and override what the
// plugin actually supports.
type UnimplementedCatalog struct{}

func (UnimplementedCatalog) Search(context.Context, CatalogInfo, string, int) (*BrowseResult, error) {
	return nil, errUnsupported("catalog search")
}

// UnimplementedAccount provides failing or permissive defaults for the
// optional AccountCapability methods.
type UnimplementedAccount struct{}

func (UnimplementedAccount) StartOAuth(context.Context, string) (*OAuthSession, error) {
	return nil, errUnsupported("oauth")
}

func (UnimplementedAccount) PollOAuth(context.Context, *OAuthSession) (*AccountInfo, error) {
	return nil, errUnsupported("oauth")
}

func (UnimplementedAccount) RefreshToken(context.Context, string, *AccountInfo) (*AccountInfo, error) {
	return nil, errUnsupported("token refresh")
}

// ValidateCredentials assumes credentials are valid unless the plugin
// overrides the check.
func (UnimplementedAccount) ValidateCredentials(context.Context, string, Credentials) (bool, error) {
	return true, nil
}

// UnimplementedProgressSync routes SyncBatch through the sequential
// fallback. Embedding plugins must still provide SyncProgress and
// FetchProgress.
type UnimplementedProgressSync struct{}

func (UnimplementedProgressSync) SyncBatch(context.Context, []Progress) error {
	return errUnsupported("batch progress sync")
}
