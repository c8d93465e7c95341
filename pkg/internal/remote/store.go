package remote

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/athlink/feedengine/pkg/internal/models"
	"github.com/athlink/feedengine/pkg/internal/services"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the reference document-store adapter backed by postgres. It
// serves the three remote roles of the engine: the snapshot push channel,
// the author profiles collection and the interaction commit target. Every
// locally committed mutation wakes all open subscriptions so they re-emit a
// fresh snapshot; a poll ticker covers changes made by other writers.
type Store struct {
	db           *gorm.DB
	pollInterval time.Duration

	mu   sync.Mutex
	subs map[*services.FeedSubscription]*watcher
}

type watcher struct {
	filter services.FeedFilter
	notify chan struct{}
}

func NewStore(db *gorm.DB) *Store {
	pollInterval := viper.GetDuration("feed.poll_interval")
	if pollInterval <= 0 {
		pollInterval = 15 * time.Second
	}

	return &Store{
		db:           db,
		pollInterval: pollInterval,
		subs:         make(map[*services.FeedSubscription]*watcher),
	}
}

func (s *Store) Subscribe(filter services.FeedFilter) (*services.FeedSubscription, error) {
	ctx, cancel := context.WithCancel(context.Background())

	var sub *services.FeedSubscription
	sub = services.NewFeedSubscription(4, func() {
		cancel()
		s.mu.Lock()
		delete(s.subs, sub)
		s.mu.Unlock()
	})

	entry := &watcher{
		filter: filter,
		notify: make(chan struct{}, 1),
	}
	s.mu.Lock()
	s.subs[sub] = entry
	s.mu.Unlock()

	go s.watch(ctx, cancel, sub, entry)
	return sub, nil
}

func (s *Store) watch(ctx context.Context, cancel context.CancelFunc, sub *services.FeedSubscription, entry *watcher) {
	emit := func() bool {
		snap, err := s.querySnapshot(entry.filter)
		if err != nil {
			log.Error().Err(err).Msg("An error occurred when loading feed snapshot...")
			sub.Fail(fmt.Errorf("unable to load feed snapshot: %v", err))
			s.mu.Lock()
			delete(s.subs, sub)
			s.mu.Unlock()
			cancel()
			return false
		}
		sub.Push(snap)
		return true
	}

	if !emit() {
		return
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-entry.notify:
			if !emit() {
				return
			}
		case <-ticker.C:
			if !emit() {
				return
			}
		}
	}
}

func (s *Store) querySnapshot(filter services.FeedFilter) (services.Snapshot, error) {
	tx := s.db.Model(&PostRecord{})
	if filter.PublicOnly {
		tx = tx.Where("visibility = ?", true)
	}

	order := filter.OrderBy
	if len(order) == 0 {
		order = "upload_date_time DESC"
	}

	var rows []PostRecord
	if err := tx.Order(order).Find(&rows).Error; err != nil {
		return services.Snapshot{}, err
	}

	return services.Snapshot{
		Records: lo.Map(rows, func(row PostRecord, _ int) services.Record {
			return row.AsRecord()
		}),
	}, nil
}

// notifyAll wakes every open subscription after a local mutation. The send
// is non-blocking: a pending wakeup already covers the change.
func (s *Store) notifyAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.subs {
		select {
		case entry.notify <- struct{}{}:
		default:
		}
	}
}

func (s *Store) CommitLike(ctx context.Context, postID, userID string, liked bool) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row PostRecord
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", postID).
			First(&row).Error; err != nil {
			return err
		}

		likedBy := []string(row.LikedBy)
		if liked {
			if !lo.Contains(likedBy, userID) {
				likedBy = append(likedBy, userID)
			}
		} else {
			likedBy = lo.Without(likedBy, userID)
		}

		return tx.Model(&PostRecord{}).
			Where("id = ?", postID).
			Updates(map[string]any{
				"like_count": gorm.Expr("like_count + ?", lo.Ternary(liked, 1, -1)),
				"liked_by":   datatypes.NewJSONSlice(likedBy),
			}).Error
	})
	if err != nil {
		return fmt.Errorf("unable to commit like mutation: %v", err)
	}

	s.notifyAll()
	return nil
}

func (s *Store) CommitComment(ctx context.Context, postID, userID, content string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&PostRecord{}).
			Where("id = ?", postID).
			Update("comment_count", gorm.Expr("comment_count + ?", 1))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("post %s does not exist", postID)
		}

		return tx.Create(&CommentRecord{
			PostID:   postID,
			AuthorID: userID,
			Content:  content,
		}).Error
	})
	if err != nil {
		return fmt.Errorf("unable to commit comment mutation: %v", err)
	}

	s.notifyAll()
	return nil
}

func (s *Store) FetchProfile(ctx context.Context, id string) (models.AuthorProfile, error) {
	var row ProfileRecord
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return models.AuthorProfile{}, fmt.Errorf("unable to get author profile: %v", err)
	}

	profile := models.AuthorProfile{
		ID:        row.ID,
		FirstName: row.FirstName,
		LastName:  row.LastName,
		AvatarURL: row.ProfilePic,
		Birthday:  row.DOB,
	}

	if value, ok := row.Details["position"].(string); ok {
		profile.Position = value
	}
	if value, ok := row.Details["height"].(string); ok {
		profile.Height = value
	}
	if value, ok := row.Details["weight"].(string); ok {
		profile.Weight = value
	}
	if value, ok := row.Details["location"].(string); ok {
		profile.Location = value
	}
	if value, ok := row.Details["showEmail"].(bool); ok {
		profile.ShowEmail = value
	}
	if value, ok := row.Details["showPhone"].(bool); ok {
		profile.ShowPhone = value
	}

	return profile, nil
}
