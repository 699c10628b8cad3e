package registry

import (
	domainpattern "github.com/kailas-cloud/fetchcascade/internal/domain/pattern"
)

// fakeRepo is an in-memory Repo for tests, mirroring the real repository's
// host-index-first semantics without touching the filesystem.
type fakeRepo struct {
	byID       map[string]*domainpattern.LearnedApiPattern
	byHostname map[string][]*domainpattern.LearnedApiPattern
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		byID:       make(map[string]*domainpattern.LearnedApiPattern),
		byHostname: make(map[string][]*domainpattern.LearnedApiPattern),
	}
}

func (r *fakeRepo) ForHostname(hostname string) []*domainpattern.LearnedApiPattern {
	return r.byHostname[hostname]
}

func (r *fakeRepo) All() []*domainpattern.LearnedApiPattern {
	out := make([]*domainpattern.LearnedApiPattern, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	return out
}

func (r *fakeRepo) Put(p *domainpattern.LearnedApiPattern) {
	if _, ok := r.byID[p.ID]; !ok {
		r.byHostname[p.Hostname] = append(r.byHostname[p.Hostname], p)
	}
	r.byID[p.ID] = p
}

func (r *fakeRepo) Get(id string) (*domainpattern.LearnedApiPattern, bool) {
	p, ok := r.byID[id]
	return p, ok
}

func (r *fakeRepo) Delete(id string) {
	p, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	list := r.byHostname[p.Hostname]
	for i, other := range list {
		if other.ID == id {
			r.byHostname[p.Hostname] = append(list[:i], list[i+1:]...)
			break
		}
	}
}

func (r *fakeRepo) IsEmpty() bool { return len(r.byID) == 0 }
func (r *fakeRepo) Count() int    { return len(r.byID) }
