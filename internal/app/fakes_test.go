package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/bft-labs/repovault/internal/domain"
)

var errKeyNotFound = errors.New("no such key")

// memStore is an in-memory ports.ObjectStore shared by the tests in this
// package. putErrs injects per-key failure counts to exercise retries.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErrs map[string]int
	puts    map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		objects: map[string][]byte{},
		putErrs: map[string]int{},
		puts:    map[string]int{},
	}
}

func (m *memStore) EnsureBucket(context.Context) error { return nil }

func (m *memStore) Put(_ context.Context, key string, r io.Reader) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts[key]++
	if m.putErrs[key] > 0 {
		m.putErrs[key]--
		return fmt.Errorf("injected put failure for %s", key)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memStore) PutFile(ctx context.Context, key, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return m.Put(ctx, key, f)
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, errKeyNotFound
	}
	return data, nil
}

func (m *memStore) NotFound(err error) bool { return errors.Is(err, errKeyNotFound) }

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memStore) DeletePrefix(_ context.Context, prefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			delete(m.objects, k)
			n++
		}
	}
	return n, nil
}

func (m *memStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *memStore) ListDirs(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	var dirs []string
	for k := range m.objects {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := strings.TrimPrefix(k, prefix)
		if i := strings.Index(rest, "/"); i > 0 && !seen[rest[:i]] {
			seen[rest[:i]] = true
			dirs = append(dirs, rest[:i])
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

func (m *memStore) Size(_ context.Context, prefix string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int64
	for k, v := range m.objects {
		if strings.HasPrefix(k, prefix) {
			total += int64(len(v))
		}
	}
	return total, nil
}

// fakeProvider serves canned repositories and metadata documents.
type fakeProvider struct {
	repos    []domain.RepoDescriptor
	listErr  error
	issueErr map[string]error
	issues   map[string]string
	pulls    map[string]string
	releases map[string]string
}

func newFakeProvider(repos ...domain.RepoDescriptor) *fakeProvider {
	return &fakeProvider{
		repos:    repos,
		issueErr: map[string]error{},
		issues:   map[string]string{},
		pulls:    map[string]string{},
		releases: map[string]string{},
	}
}

func (f *fakeProvider) ListRepositories(context.Context) ([]domain.RepoDescriptor, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.repos, nil
}

func (f *fakeProvider) doc(m map[string]string, desc domain.RepoDescriptor) ([]byte, error) {
	if doc, ok := m[desc.FullName()]; ok {
		return []byte(doc), nil
	}
	return []byte("[]"), nil
}

func (f *fakeProvider) ExportIssues(_ context.Context, desc domain.RepoDescriptor) ([]byte, error) {
	if err := f.issueErr[desc.FullName()]; err != nil {
		return nil, err
	}
	return f.doc(f.issues, desc)
}

func (f *fakeProvider) ExportPullRequests(_ context.Context, desc domain.RepoDescriptor) ([]byte, error) {
	return f.doc(f.pulls, desc)
}

func (f *fakeProvider) ExportReleases(_ context.Context, desc domain.RepoDescriptor) ([]byte, error) {
	return f.doc(f.releases, desc)
}

func (f *fakeProvider) CloneURL(desc domain.RepoDescriptor) string {
	return "https://example.com/" + desc.FullName() + ".git"
}

func (f *fakeProvider) WikiURL(desc domain.RepoDescriptor) string {
	if !desc.HasWiki {
		return ""
	}
	return "https://example.com/" + desc.FullName() + ".wiki.git"
}

// fakeMirror simulates clone and bundle by touching files on disk. Errors
// are injected per clone URL.
type fakeMirror struct {
	cloneErr map[string]error
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{cloneErr: map[string]error{}}
}

func (f *fakeMirror) MirrorClone(_ context.Context, remoteURL, destPath string) error {
	if err := f.cloneErr[remoteURL]; err != nil {
		return err
	}
	return os.MkdirAll(destPath, 0o700)
}

func (f *fakeMirror) CreateBundle(_ context.Context, mirrorPath, bundlePath string) error {
	return os.WriteFile(bundlePath, []byte("bundle-of-"+mirrorPath), 0o600)
}
