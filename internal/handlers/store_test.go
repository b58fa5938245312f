package handlers

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"podhost/internal/db"
	"podhost/internal/models"
)

// memStore is an in-memory Store for handler tests.
type memStore struct {
	mu       sync.Mutex
	seq      int
	tokens   map[string]*models.User
	podcasts map[string]*models.Podcast
	cats     map[string]*models.Category
	episodes map[string]*models.Episode
	plays    []models.Play
	accounts map[string]*models.YouTubeAccount
	since    time.Time
	pingErr  error
}

func newMemStore() *memStore {
	return &memStore{
		tokens:   map[string]*models.User{},
		podcasts: map[string]*models.Podcast{},
		cats:     map[string]*models.Category{},
		episodes: map[string]*models.Episode{},
		accounts: map[string]*models.YouTubeAccount{},
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return prefix + strconv.Itoa(s.seq)
}

func (s *memStore) Ping(context.Context) error { return s.pingErr }

func (s *memStore) GetUserByTokenHash(_ context.Context, hash string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.tokens[hash]; ok {
		return u, nil
	}
	return nil, db.ErrNotFound
}

func (s *memStore) GetPodcastBySlug(_ context.Context, slug string) (*models.Podcast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.podcasts {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *memStore) GetPodcastByID(_ context.Context, id string) (*models.Podcast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.podcasts[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, db.ErrNotFound
}

func (s *memStore) FindPodcastByTitle(_ context.Context, userID, title string) (*models.Podcast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.podcasts {
		if p.UserID == userID && p.Title == title {
			cp := *p
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *memStore) ListPodcasts(context.Context) ([]models.PodcastSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PodcastSummary
	for _, p := range s.podcasts {
		n := 0
		for _, e := range s.episodes {
			if e.PodcastID == p.ID {
				n++
			}
		}
		out = append(out, models.PodcastSummary{Podcast: *p, EpisodeCount: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memStore) CreatePodcast(_ context.Context, p *models.Podcast) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.podcasts {
		if existing.Slug == p.Slug {
			return db.ErrConflict
		}
	}
	p.ID = s.nextID("p")
	p.CreatedAt = time.Now().UTC()
	cp := *p
	s.podcasts[p.ID] = &cp
	return nil
}

func (s *memStore) UpdatePodcast(_ context.Context, p *models.Podcast) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.podcasts[p.ID]; !ok {
		return db.ErrNotFound
	}
	for _, existing := range s.podcasts {
		if existing.ID != p.ID && existing.Slug == p.Slug {
			return db.ErrConflict
		}
	}
	cp := *p
	s.podcasts[p.ID] = &cp
	return nil
}

func (s *memStore) UpdatePodcastCover(_ context.Context, id, coverURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.podcasts[id].CoverURL = &coverURL
	return nil
}

func (s *memStore) DeletePodcast(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for eid, e := range s.episodes {
		if e.PodcastID == id {
			delete(s.episodes, eid)
		}
	}
	delete(s.podcasts, id)
	return nil
}

func (s *memStore) ListEpisodesByPodcast(_ context.Context, podcastID string, limit int) ([]models.Episode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Episode
	for _, e := range s.episodes {
		if e.PodcastID == podcastID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) joined(e *models.Episode) models.EpisodeWithPodcast {
	p := s.podcasts[e.PodcastID]
	plays := 0
	for _, pl := range s.plays {
		if pl.EpisodeID == e.ID {
			plays++
		}
	}
	return models.EpisodeWithPodcast{
		Episode:         *e,
		PodcastTitle:    p.Title,
		PodcastSlug:     p.Slug,
		PodcastUserID:   p.UserID,
		PodcastCoverURL: p.CoverURL,
		PlayCount:       plays,
	}
}

func (s *memStore) ListEpisodesWithPodcast(context.Context) ([]models.EpisodeWithPodcast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.EpisodeWithPodcast
	for _, e := range s.episodes {
		out = append(out, s.joined(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	return out, nil
}

func (s *memStore) GetEpisodeWithPodcast(_ context.Context, id string) (*models.EpisodeWithPodcast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.episodes[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	j := s.joined(e)
	return &j, nil
}

func (s *memStore) CreateEpisode(_ context.Context, e *models.Episode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.nextID("e")
	e.CreatedAt = time.Now().UTC()
	if e.PublishedAt.IsZero() {
		e.PublishedAt = e.CreatedAt
	}
	cp := *e
	s.episodes[e.ID] = &cp
	return nil
}

func (s *memStore) DeleteEpisode(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.episodes[id]; !ok {
		return db.ErrNotFound
	}
	delete(s.episodes, id)
	return nil
}

func (s *memStore) UpdateEpisodeYouTubeStatus(_ context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.episodes[id].YouTubeStatus = &status
	return nil
}

func (s *memStore) RecordPlay(_ context.Context, episodeID, identifier string, referer *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plays = append(s.plays, models.Play{EpisodeID: episodeID, Identifier: identifier, Referer: referer})
	return nil
}

func (s *memStore) DashboardOverview(_ context.Context, userID string, since time.Time) (*models.DashboardOverview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.since = since
	overview := &models.DashboardOverview{TopEpisodes: []models.EpisodePlays{}, PlaysPerDay: []models.DailyPlays{}}
	for _, p := range s.podcasts {
		if p.UserID == userID {
			overview.TotalPodcasts++
		}
	}
	return overview, nil
}

func (s *memStore) GetYouTubeAccount(_ context.Context, userID string) (*models.YouTubeAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[userID]; ok {
		return a, nil
	}
	return nil, db.ErrNotFound
}

func (s *memStore) UpsertYouTubeAccount(_ context.Context, acc *models.YouTubeAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc.ID == "" {
		acc.ID = s.nextID("yt")
	}
	s.accounts[acc.UserID] = acc
	return nil
}

func (s *memStore) DeleteYouTubeAccount(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.accounts, userID)
	return nil
}

func (s *memStore) ListCategories(context.Context) ([]models.CategorySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.CategorySummary{}
	for _, c := range s.cats {
		n := 0
		for _, p := range s.podcasts {
			if p.CategoryID != nil && *p.CategoryID == c.ID {
				n++
			}
		}
		out = append(out, models.CategorySummary{Category: *c, PodcastCount: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) GetCategory(_ context.Context, id string) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.cats[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, db.ErrNotFound
}

func (s *memStore) CreateCategory(_ context.Context, c *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.cats {
		if existing.Name == c.Name {
			return db.ErrConflict
		}
	}
	c.ID = s.nextID("c")
	c.CreatedAt = time.Now().UTC()
	cp := *c
	s.cats[c.ID] = &cp
	return nil
}

func (s *memStore) UpdateCategory(_ context.Context, c *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cats[c.ID]; !ok {
		return db.ErrNotFound
	}
	for _, existing := range s.cats {
		if existing.ID != c.ID && existing.Name == c.Name {
			return db.ErrConflict
		}
	}
	cp := *c
	s.cats[c.ID] = &cp
	return nil
}

func (s *memStore) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cats[id]; !ok {
		return db.ErrNotFound
	}
	for _, p := range s.podcasts {
		if p.CategoryID != nil && *p.CategoryID == id {
			p.CategoryID = nil
		}
	}
	delete(s.cats, id)
	return nil
}
