package attachment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/modmail/internal/domain"
)

type mapFetcher struct {
	data  map[string][]byte
	fail  string
	calls []string
}

func (m *mapFetcher) Fetch(_ context.Context, a domain.Attachment) ([]byte, error) {
	m.calls = append(m.calls, a.Filename)
	if a.Filename == m.fail {
		return nil, errors.New("connection reset")
	}
	return m.data[a.Filename], nil
}

type recordingProgress struct {
	updates []string
}

func (r *recordingProgress) Update(_ context.Context, done, total int) {
	r.updates = append(r.updates, ProgressText(done, total))
}

func TestStagePreservesOrderAndReportsProgress(t *testing.T) {
	f := &mapFetcher{data: map[string][]byte{"a": []byte("A"), "b": []byte("BB"), "c": []byte("CCC")}}
	p := &recordingProgress{}
	atts := []domain.Attachment{{Filename: "a"}, {Filename: "b"}, {Filename: "c"}}

	files, err := Stage(context.Background(), atts, f, p)
	if err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	var names []string
	for _, file := range files {
		names = append(names, file.Name)
	}
	if !reflect.DeepEqual(names, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected order %v", names)
	}
	if string(files[2].Data) != "CCC" {
		t.Fatalf("unexpected data %q", files[2].Data)
	}
	want := []string{
		"Downloading attachments... 0/3",
		"Downloading attachments... 1/3",
		"Downloading attachments... 2/3",
		"Downloading attachments... 3/3",
	}
	if !reflect.DeepEqual(p.updates, want) {
		t.Fatalf("progress = %v, want %v", p.updates, want)
	}
}

func TestStageAbortsOnFailure(t *testing.T) {
	f := &mapFetcher{fail: "b"}
	p := &recordingProgress{}
	atts := []domain.Attachment{{Filename: "a"}, {Filename: "b"}, {Filename: "c"}}

	files, err := Stage(context.Background(), atts, f, p)
	if err == nil {
		t.Fatal("expected error")
	}
	if files != nil {
		t.Fatalf("expected no files, got %d", len(files))
	}
	if !reflect.DeepEqual(f.calls, []string{"a", "b"}) {
		t.Fatalf("download must stop at the failure, calls = %v", f.calls)
	}
}

func TestStageWithoutAttachments(t *testing.T) {
	p := &recordingProgress{}
	files, err := Stage(context.Background(), nil, &mapFetcher{}, p)
	if err != nil || files != nil || len(p.updates) != 0 {
		t.Fatalf("expected no-op, got files=%v err=%v updates=%v", files, err, p.updates)
	}
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte("hello"))
		case "/big":
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(16, WithMaxRetries(0), WithRetryWait(time.Millisecond, time.Millisecond))
	ctx := context.Background()

	data, err := f.Fetch(ctx, domain.Attachment{Filename: "ok", URL: srv.URL + "/ok", Size: 5})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("unexpected body %q", data)
	}

	if _, err := f.Fetch(ctx, domain.Attachment{Filename: "big", URL: srv.URL + "/big", Size: 1}); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge for oversized body, got %v", err)
	}
	if _, err := f.Fetch(ctx, domain.Attachment{Filename: "declared", URL: srv.URL + "/ok", Size: 17}); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge for oversized declared size, got %v", err)
	}
	if _, err := f.Fetch(ctx, domain.Attachment{Filename: "missing", URL: srv.URL + "/missing"}); err == nil {
		t.Fatal("expected error for 404")
	}
}
