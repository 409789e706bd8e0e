package evidence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ethanolivertroy/nc-tracker/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrIndexOutOfRange is returned when removing a file that does not exist
var ErrIndexOutOfRange = errors.New("evidence file index out of range")

var errTooLarge = errors.New("file exceeds size limit")

// Rejection reasons
const (
	ReasonTooLarge     = "too_large"
	ReasonLimitReached = "limit_reached"
	ReasonUnreadable   = "unreadable"
)

// Limits caps attachments per finding
type Limits struct {
	MaxFiles     int
	MaxFileBytes int64
}

// DefaultLimits allows six files of at most 2 MB each
func DefaultLimits() Limits {
	return Limits{MaxFiles: 6, MaxFileBytes: 2 * 1024 * 1024}
}

// Rejection explains why one upload was skipped
type Rejection struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
	Err    string `json:"error,omitempty"`
}

// AddResult summarizes an upload batch
type AddResult struct {
	Accepted   int         `json:"accepted"`
	Skipped    int         `json:"skipped"`
	Rejections []Rejection `json:"rejections,omitempty"`
}

func (r *AddResult) reject(name, reason string, err error) {
	rej := Rejection{Name: name, Reason: reason}
	if err != nil {
		rej.Err = err.Error()
	}
	r.Rejections = append(r.Rejections, rej)
	r.Skipped++
}

// Manager attaches and detaches evidence files
type Manager struct {
	Limits   Limits
	Content  ContentStore
	Parallel int
	Now      func() time.Time
	Logger   *zap.Logger
}

// NewManager creates a manager with the default limits over the given content store
func NewManager(content ContentStore) *Manager {
	return &Manager{
		Limits:   DefaultLimits(),
		Content:  content,
		Parallel: 4,
		Now:      time.Now,
		Logger:   zap.NewNop(),
	}
}

// Add appends uploads to p in input order. Files over the size cap, files that
// fail to read and files arriving once p holds MaxFiles are skipped and
// counted; a failure on one file never aborts the others and never uses up a
// slot. Reads run in parallel but all complete before Add returns.
func (m *Manager) Add(ctx context.Context, p *models.Progress, uploads []Upload) AddResult {
	data := make([][]byte, len(uploads))
	errs := make([]error, len(uploads))

	var g errgroup.Group
	if m.Parallel > 0 {
		g.SetLimit(m.Parallel)
	}
	for i, u := range uploads {
		if u.Size > m.Limits.MaxFileBytes {
			errs[i] = errTooLarge
			continue
		}
		g.Go(func() error {
			data[i], errs[i] = m.read(u)
			return nil
		})
	}
	_ = g.Wait()

	var res AddResult
	for i, u := range uploads {
		err := errs[i]
		if err == nil && len(p.EvidenceFiles) >= m.Limits.MaxFiles {
			res.reject(u.Name, ReasonLimitReached, nil)
			continue
		}
		var f models.EvidenceFile
		if err == nil {
			f, err = m.store(ctx, u, data[i])
		}
		if err != nil {
			reason := ReasonUnreadable
			if errors.Is(err, errTooLarge) {
				reason = ReasonTooLarge
				err = nil
			}
			m.logger().Warn("Skipping evidence file", zap.String("name", u.Name), zap.String("reason", reason), zap.Error(err))
			res.reject(u.Name, reason, err)
			continue
		}
		p.EvidenceFiles = append(p.EvidenceFiles, f)
		res.Accepted++
	}
	return res
}

// read loads the content of an upload, enforcing the size cap on the bytes
// actually read
func (m *Manager) read(u Upload) ([]byte, error) {
	if u.Open == nil {
		return nil, fmt.Errorf("no content for %s", u.Name)
	}
	rc, err := u.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, m.Limits.MaxFileBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > m.Limits.MaxFileBytes {
		return nil, errTooLarge
	}
	return data, nil
}

func (m *Manager) store(ctx context.Context, u Upload, data []byte) (models.EvidenceFile, error) {
	handle, err := m.Content.Store(ctx, u.MimeType, data)
	if err != nil {
		return models.EvidenceFile{}, err
	}
	return models.EvidenceFile{
		Name:          u.Name,
		MimeType:      u.MimeType,
		SizeBytes:     int64(len(data)),
		ContentHandle: handle,
		UploadedAt:    m.now().UTC(),
	}, nil
}

// Remove detaches the file at index and deletes its content
func (m *Manager) Remove(ctx context.Context, p *models.Progress, index int) error {
	if index < 0 || index >= len(p.EvidenceFiles) {
		return fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, index, len(p.EvidenceFiles))
	}
	f := p.EvidenceFiles[index]
	p.EvidenceFiles = append(p.EvidenceFiles[:index:index], p.EvidenceFiles[index+1:]...)
	m.deleteContent(ctx, f)
	return nil
}

// Clear detaches every file
func (m *Manager) Clear(ctx context.Context, p *models.Progress) int {
	n := len(p.EvidenceFiles)
	for _, f := range p.EvidenceFiles {
		m.deleteContent(ctx, f)
	}
	p.EvidenceFiles = []models.EvidenceFile{}
	return n
}

// Read resolves the bytes of the file at index
func (m *Manager) Read(ctx context.Context, p *models.Progress, index int) (models.EvidenceFile, []byte, error) {
	if index < 0 || index >= len(p.EvidenceFiles) {
		return models.EvidenceFile{}, nil, fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, index, len(p.EvidenceFiles))
	}
	f := p.EvidenceFiles[index]
	data, err := m.Content.Resolve(ctx, f.ContentHandle)
	if err != nil {
		return f, nil, fmt.Errorf("failed to resolve %s: %w", f.Name, err)
	}
	return f, data, nil
}

func (m *Manager) deleteContent(ctx context.Context, f models.EvidenceFile) {
	if err := m.Content.Delete(ctx, f.ContentHandle); err != nil {
		// the record is gone either way; an orphaned blob is harmless
		m.logger().Warn("Failed to delete evidence content", zap.String("name", f.Name), zap.Error(err))
	}
}

func (m *Manager) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

func (m *Manager) logger() *zap.Logger {
	if m.Logger == nil {
		return zap.NewNop()
	}
	return m.Logger
}
