package reg

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Registry maps usernames to user ids for every user the bot has seen, so commands
// can target members by @username. Least recently seen users are evicted first.
type Registry struct {
	byName *lru.Cache[string, int64]
}

func New(size int) (*Registry, error) {
	cache, err := lru.New[string, int64](size)
	if err != nil {
		return nil, err
	}
	return &Registry{byName: cache}, nil
}

func normalize(username string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
}

func (r *Registry) Remember(userID int64, username string) {
	if name := normalize(username); name != "" {
		r.byName.Add(name, userID)
	}
}

func (r *Registry) Lookup(username string) (int64, bool) {
	return r.byName.Get(normalize(username))
}

func (r *Registry) Len() int {
	return r.byName.Len()
}
