package cli

import (
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
)

// fileJar persists the session cookies for the API origin between CLI
// invocations. Cookies for any other host pass through the in-memory jar
// and are discarded on exit.
type fileJar struct {
	*cookiejar.Jar
	path   string
	origin *url.URL
}

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func newFileJar(path string, origin *url.URL) (*fileJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	f := &fileJar{Jar: jar, path: path, origin: origin}
	f.load()
	return f, nil
}

// load seeds the jar from disk. A missing or unreadable file just means a
// fresh session.
func (f *fileJar) load() {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return
	}
	var stored []storedCookie
	if err := json.Unmarshal(raw, &stored); err != nil {
		return
	}

	cookies := make([]*http.Cookie, 0, len(stored))
	for _, c := range stored {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	f.Jar.SetCookies(f.origin, cookies)
}

// Save writes the current session cookies back to disk.
func (f *fileJar) Save() error {
	cookies := f.Jar.Cookies(f.origin)
	stored := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		stored = append(stored, storedCookie{Name: c.Name, Value: c.Value})
	}

	raw, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(f.path, raw, 0o600)
}
