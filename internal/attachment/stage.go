package attachment

import (
	"context"
	"fmt"

	"github.com/ashureev/modmail/internal/domain"
)

// File is a fully downloaded attachment ready for re-upload.
type File struct {
	Name string
	Data []byte
}

// Fetcher downloads one attachment into memory.
type Fetcher interface {
	Fetch(ctx context.Context, a domain.Attachment) ([]byte, error)
}

// Progress receives download progress. It is called with done=0 before the
// first download and after every completed file.
type Progress interface {
	Update(ctx context.Context, done, total int)
}

// Stage downloads every attachment in order. The first failure aborts the
// whole stage; files fetched before it are discarded.
func Stage(ctx context.Context, atts []domain.Attachment, f Fetcher, p Progress) ([]File, error) {
	if len(atts) == 0 {
		return nil, nil
	}
	total := len(atts)
	p.Update(ctx, 0, total)

	files := make([]File, 0, total)
	for i, a := range atts {
		data, err := f.Fetch(ctx, a)
		if err != nil {
			return nil, fmt.Errorf("download %q (%d/%d): %w", a.Filename, i+1, total, err)
		}
		files = append(files, File{Name: a.Filename, Data: data})
		p.Update(ctx, i+1, total)
	}
	return files, nil
}

// ProgressText is the progress line shown while staging.
func ProgressText(done, total int) string {
	return fmt.Sprintf("Downloading attachments... %d/%d", done, total)
}
