package evidence

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethanolivertroy/nc-tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(DataURLStore{})
	m.Now = func() time.Time { return fixedNow }
	return m
}

func TestHasEvidence(t *testing.T) {
	tests := []struct {
		name string
		p    models.Progress
		want bool
	}{
		{"empty", models.Progress{}, false},
		{"short link", models.Progress{EvidenceLink: "http://x"}, false},
		{"nine char link", models.Progress{EvidenceLink: "http://xy"}, true},
		{"whitespace padded link", models.Progress{EvidenceLink: "   http://x   "}, false},
		{"short note", models.Progress{EvidenceNote: "done"}, false},
		{"twenty char note", models.Progress{EvidenceNote: "fixed the extinguish"}, true},
		{"one file", models.Progress{EvidenceFiles: []models.EvidenceFile{{Name: "a.pdf"}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasEvidence(&tt.p))
		})
	}
	assert.False(t, HasEvidence(nil))
}

func TestHasEvidence_CountsRunes(t *testing.T) {
	// 19 runes, more than 20 bytes
	p := &models.Progress{EvidenceNote: "éééééééééééééééééééé"[:38]}
	assert.False(t, HasEvidence(p))
}

func TestSyncFlag(t *testing.T) {
	p := models.NewProgress(fixedNow)
	p.Checklist.Evidence = true

	assert.False(t, SyncFlag(p, false), "policy off leaves manual flag")
	assert.True(t, p.Checklist.Evidence)

	assert.True(t, SyncFlag(p, true))
	assert.False(t, p.Checklist.Evidence)

	p.EvidenceLink = "https://drive.example.com/x"
	assert.True(t, SyncFlag(p, true))
	assert.True(t, p.Checklist.Evidence)
	assert.False(t, SyncFlag(p, true), "no change second time")
}

func TestSyncPolicy(t *testing.T) {
	withLink := models.NewProgress(fixedNow)
	withLink.EvidenceLink = "https://example.com/proof"
	manual := models.NewProgress(fixedNow)
	manual.Checklist.Evidence = true

	all := map[string]*models.Progress{"A": withLink, "B": manual}
	assert.Equal(t, 0, SyncPolicy(all, false))
	assert.True(t, manual.Checklist.Evidence)

	assert.Equal(t, 2, SyncPolicy(all, true))
	assert.True(t, withLink.Checklist.Evidence)
	assert.False(t, manual.Checklist.Evidence)
}

func TestAdd_AcceptsFilesInOrder(t *testing.T) {
	m := newTestManager(t)
	p := models.NewProgress(fixedNow)

	res := m.Add(context.Background(), p, []Upload{
		FromBytes("a.txt", "text/plain", []byte("alpha")),
		FromBytes("b.txt", "text/plain", []byte("bravo")),
		FromBytes("c.txt", "text/plain", []byte("charlie")),
	})

	assert.Equal(t, 3, res.Accepted)
	assert.Equal(t, 0, res.Skipped)
	require.Len(t, p.EvidenceFiles, 3)
	assert.Equal(t, "a.txt", p.EvidenceFiles[0].Name)
	assert.Equal(t, "b.txt", p.EvidenceFiles[1].Name)
	assert.Equal(t, "c.txt", p.EvidenceFiles[2].Name)
	assert.Equal(t, int64(7), p.EvidenceFiles[2].SizeBytes)
	assert.Equal(t, fixedNow, p.EvidenceFiles[0].UploadedAt)

	_, data, err := m.Read(context.Background(), p, 1)
	require.NoError(t, err)
	assert.Equal(t, "bravo", string(data))
}

func TestAdd_CapsFileCount(t *testing.T) {
	m := newTestManager(t)
	p := models.NewProgress(fixedNow)
	for i := 0; i < 5; i++ {
		p.EvidenceFiles = append(p.EvidenceFiles, models.EvidenceFile{Name: "old"})
	}

	res := m.Add(context.Background(), p, []Upload{
		FromBytes("one.txt", "text/plain", []byte("1")),
		FromBytes("two.txt", "text/plain", []byte("2")),
		FromBytes("three.txt", "text/plain", []byte("3")),
	})

	assert.Equal(t, 1, res.Accepted)
	assert.Equal(t, 2, res.Skipped)
	assert.Len(t, p.EvidenceFiles, 6)
	assert.Equal(t, "one.txt", p.EvidenceFiles[5].Name)
	for _, r := range res.Rejections {
		assert.Equal(t, ReasonLimitReached, r.Reason)
	}
}

func TestAdd_SkipsOversizedFiles(t *testing.T) {
	m := newTestManager(t)
	p := models.NewProgress(fixedNow)

	big := bytes.Repeat([]byte("x"), int(m.Limits.MaxFileBytes)+1)
	res := m.Add(context.Background(), p, []Upload{
		FromBytes("big.bin", "application/octet-stream", big),
		FromBytes("ok.txt", "text/plain", []byte("fine")),
	})

	assert.Equal(t, 1, res.Accepted)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Rejections, 1)
	assert.Equal(t, Rejection{Name: "big.bin", Reason: ReasonTooLarge}, res.Rejections[0])
	require.Len(t, p.EvidenceFiles, 1)
	assert.Equal(t, "ok.txt", p.EvidenceFiles[0].Name)
}

func TestAdd_ExactlyAtSizeLimit(t *testing.T) {
	m := newTestManager(t)
	m.Limits.MaxFileBytes = 4
	p := models.NewProgress(fixedNow)

	res := m.Add(context.Background(), p, []Upload{FromBytes("four.txt", "text/plain", []byte("1234"))})
	assert.Equal(t, 1, res.Accepted)
}

func TestAdd_UnderreportedSizeIsCaughtOnRead(t *testing.T) {
	m := newTestManager(t)
	m.Limits.MaxFileBytes = 4
	p := models.NewProgress(fixedNow)

	u := FromBytes("liar.txt", "text/plain", []byte("123456789"))
	u.Size = 1
	res := m.Add(context.Background(), p, []Upload{u})

	assert.Equal(t, 0, res.Accepted)
	require.Len(t, res.Rejections, 1)
	assert.Equal(t, ReasonTooLarge, res.Rejections[0].Reason)
	assert.Empty(t, p.EvidenceFiles)
}

func TestAdd_UnreadableFileDoesNotAbortBatch(t *testing.T) {
	m := newTestManager(t)
	p := models.NewProgress(fixedNow)

	broken := Upload{
		Name: "broken.pdf",
		Size: 10,
		Open: func() (io.ReadCloser, error) { return nil, errors.New("disk gone") },
	}
	res := m.Add(context.Background(), p, []Upload{
		FromBytes("a.txt", "text/plain", []byte("a")),
		broken,
		FromBytes("c.txt", "text/plain", []byte("c")),
	})

	assert.Equal(t, 2, res.Accepted)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Rejections, 1)
	assert.Equal(t, ReasonUnreadable, res.Rejections[0].Reason)
	assert.Contains(t, res.Rejections[0].Err, "disk gone")
	require.Len(t, p.EvidenceFiles, 2)
	assert.Equal(t, "a.txt", p.EvidenceFiles[0].Name)
	assert.Equal(t, "c.txt", p.EvidenceFiles[1].Name)
}

func brokenUpload(name string) Upload {
	return Upload{
		Name: name,
		Size: 10,
		Open: func() (io.ReadCloser, error) { return nil, errors.New("io") },
	}
}

func TestAdd_UnreadableFileDoesNotUseASlot(t *testing.T) {
	m := newTestManager(t)
	p := models.NewProgress(fixedNow)
	for i := 0; i < 5; i++ {
		p.EvidenceFiles = append(p.EvidenceFiles, models.EvidenceFile{Name: "old"})
	}

	res := m.Add(context.Background(), p, []Upload{
		brokenUpload("bad.pdf"),
		FromBytes("good.pdf", "application/pdf", []byte("%PDF")),
	})

	assert.Equal(t, 1, res.Accepted)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, []Rejection{{Name: "bad.pdf", Reason: ReasonUnreadable, Err: "io"}}, res.Rejections)
	require.Len(t, p.EvidenceFiles, 6)
	assert.Equal(t, "good.pdf", p.EvidenceFiles[5].Name)
}

func TestAdd_RejectionsFollowInputOrder(t *testing.T) {
	m := newTestManager(t)
	m.Limits.MaxFiles = 2
	m.Limits.MaxFileBytes = 4
	p := models.NewProgress(fixedNow)

	res := m.Add(context.Background(), p, []Upload{
		FromBytes("big.bin", "application/octet-stream", []byte("12345")),
		brokenUpload("bad.pdf"),
		FromBytes("one.txt", "text/plain", []byte("1")),
		FromBytes("two.txt", "text/plain", []byte("2")),
		FromBytes("three.txt", "text/plain", []byte("3")),
	})

	assert.Equal(t, 2, res.Accepted)
	assert.Equal(t, 3, res.Skipped)
	assert.Equal(t, []Rejection{
		{Name: "big.bin", Reason: ReasonTooLarge},
		{Name: "bad.pdf", Reason: ReasonUnreadable, Err: "io"},
		{Name: "three.txt", Reason: ReasonLimitReached},
	}, res.Rejections)
	require.Len(t, p.EvidenceFiles, 2)
	assert.Equal(t, "one.txt", p.EvidenceFiles[0].Name)
	assert.Equal(t, "two.txt", p.EvidenceFiles[1].Name)
}

func TestAdd_NoContentStoredPastTheCap(t *testing.T) {
	dir := t.TempDir()
	content, err := NewDirStore(dir)
	require.NoError(t, err)
	m := NewManager(content)
	m.Limits.MaxFiles = 1
	p := models.NewProgress(fixedNow)

	res := m.Add(context.Background(), p, []Upload{
		FromBytes("a.txt", "text/plain", []byte("a")),
		FromBytes("b.txt", "text/plain", []byte("b")),
	})

	assert.Equal(t, 1, res.Accepted)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRemove(t *testing.T) {
	m := newTestManager(t)
	p := models.NewProgress(fixedNow)
	m.Add(context.Background(), p, []Upload{
		FromBytes("a.txt", "text/plain", []byte("a")),
		FromBytes("b.txt", "text/plain", []byte("b")),
		FromBytes("c.txt", "text/plain", []byte("c")),
	})

	require.NoError(t, m.Remove(context.Background(), p, 1))
	require.Len(t, p.EvidenceFiles, 2)
	assert.Equal(t, "a.txt", p.EvidenceFiles[0].Name)
	assert.Equal(t, "c.txt", p.EvidenceFiles[1].Name)

	err := m.Remove(context.Background(), p, 2)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	err = m.Remove(context.Background(), p, -1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.Len(t, p.EvidenceFiles, 2)
}

func TestClear(t *testing.T) {
	m := newTestManager(t)
	p := models.NewProgress(fixedNow)
	m.Add(context.Background(), p, []Upload{FromBytes("a.txt", "text/plain", []byte("a"))})

	assert.Equal(t, 1, m.Clear(context.Background(), p))
	assert.NotNil(t, p.EvidenceFiles)
	assert.Empty(t, p.EvidenceFiles)
}

func TestDataURLStore(t *testing.T) {
	ctx := context.Background()
	var s DataURLStore

	h, err := s.Store(ctx, "image/png", []byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,iVBORw==", h)

	data, err := s.Resolve(ctx, "data:text/plain,hello%20world")
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	_, err = s.Resolve(ctx, "https://example.com")
	assert.ErrorIs(t, err, ErrInvalidHandle)
}

func TestDirStore(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "blobs")
	s, err := NewDirStore(dir)
	require.NoError(t, err)

	h, err := s.Store(ctx, "text/plain", []byte("proof"))
	require.NoError(t, err)

	data, err := s.Resolve(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, "proof", string(data))

	require.NoError(t, s.Delete(ctx, h))
	_, err = os.Stat(filepath.Join(dir, h))
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, s.Delete(ctx, h), "deleting twice is fine")

	_, err = s.Resolve(ctx, "../../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidHandle)
}

func TestFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.noext")
	require.NoError(t, os.WriteFile(path, []byte("plain text body"), 0o644))

	u, err := FromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "report.noext", u.Name)
	assert.Equal(t, int64(15), u.Size)
	assert.Contains(t, u.MimeType, "text/plain")

	_, err = FromPath(dir)
	assert.Error(t, err)
}
