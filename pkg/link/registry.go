package link

import (
	"fmt"
	"net/url"
	"sort"
	"sync"
)

// Factory creates an Opener from a parsed link URL.
type Factory func(*url.URL) (Opener, error)

var (
	factories     = make(map[string]Factory)
	factoriesLock sync.RWMutex
)

// Register registers a Factory for a URL scheme. It's called by adapter
// packages during init.
func Register(scheme string, factory Factory) {
	factoriesLock.Lock()
	defer factoriesLock.Unlock()
	if _, exist := factories[scheme]; exist {
		panic(fmt.Sprintf("link scheme %q already registered", scheme))
	}
	factories[scheme] = factory
}

// Schemes lists registered schemes.
func Schemes() []string {
	factoriesLock.RLock()
	defer factoriesLock.RUnlock()
	schemes := make([]string, 0, len(factories))
	for scheme := range factories {
		schemes = append(schemes, scheme)
	}
	sort.Strings(schemes)
	return schemes
}

// New creates an Opener from link URL.
func New(linkURL string) (Opener, error) {
	parsedURL, err := url.Parse(linkURL)
	if err != nil {
		return nil, fmt.Errorf("invalid link URL: %w", err)
	}
	factoriesLock.RLock()
	factory := factories[parsedURL.Scheme]
	factoriesLock.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unknown link URL scheme: %q", parsedURL.Scheme)
	}
	return factory(parsedURL)
}
