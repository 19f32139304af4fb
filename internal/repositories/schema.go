package repositories

import (
	"fmt"
	"time"

	"github.com/anonto42/storyshare/backend/internal/models"
	"gorm.io/gorm"
)

// The records below describe the relational schema for development
// databases. Production schemas are owned by the backend.

type profileRecord struct {
	ID          string  `gorm:"primaryKey;type:text"`
	DisplayName string  `gorm:"type:text;not null;default:''"`
	AvatarURL   *string `gorm:"type:text"`
	IsAdmin     bool    `gorm:"not null;default:false"`
	LikesPublic bool    `gorm:"not null;default:true"`
	CreatedAt   time.Time
}

func (profileRecord) TableName() string { return models.RelProfiles }

type storyRecord struct {
	ID           string    `gorm:"primaryKey;type:text"`
	Title        string    `gorm:"type:text;not null"`
	Body         string    `gorm:"type:text;not null"`
	CoverURL     *string   `gorm:"type:text"`
	LikeCount    int       `gorm:"not null;default:0"`
	CommentCount int       `gorm:"not null;default:0"`
	CreatedAt    time.Time `gorm:"index"`
	AuthorID     string    `gorm:"type:text;not null;index"`
	AuthorName   string    `gorm:"type:text;not null;default:''"`
	Category     string    `gorm:"type:text;not null;default:'other'"`
}

func (storyRecord) TableName() string { return models.RelStories }

type storyLikeRecord struct {
	UserID    string `gorm:"primaryKey;type:text"`
	StoryID   string `gorm:"primaryKey;type:text;index"`
	CreatedAt time.Time
}

func (storyLikeRecord) TableName() string { return models.RelStoryLikes }

type commentRecord struct {
	ID        string `gorm:"primaryKey;type:text"`
	StoryID   string `gorm:"type:text;not null;index"`
	UserID    string `gorm:"type:text;not null"`
	Text      string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

func (commentRecord) TableName() string { return models.RelComments }

type notificationRecord struct {
	ID          string `gorm:"primaryKey;type:text"`
	RecipientID string `gorm:"type:text;not null;index:idx_recipient_read"`
	ActorID     string `gorm:"type:text;not null"`
	Type        string `gorm:"type:text;not null"`
	StoryID     string `gorm:"type:text;not null"`
	Read        bool   `gorm:"not null;default:false;index:idx_recipient_read"`
	CreatedAt   time.Time
}

func (notificationRecord) TableName() string { return models.RelNotifications }

// counterTrigger keeps a parent counter in step with child inserts and
// deletes.
type counterTrigger struct {
	child, parent, column, key string
}

var counterTriggers = []counterTrigger{
	{child: models.RelStoryLikes, parent: models.RelStories, column: "like_count", key: "story_id"},
	{child: models.RelComments, parent: models.RelStories, column: "comment_count", key: "story_id"},
}

func (t counterTrigger) sql() []string {
	fn := fmt.Sprintf("%s_%s_counter", t.child, t.column)
	return []string{
		fmt.Sprintf(`CREATE OR REPLACE FUNCTION %[1]s() RETURNS trigger AS $$
BEGIN
	IF TG_OP = 'INSERT' THEN
		UPDATE %[2]s SET %[3]s = %[3]s + 1 WHERE id = NEW.%[4]s;
		RETURN NEW;
	END IF;
	UPDATE %[2]s SET %[3]s = GREATEST(%[3]s - 1, 0) WHERE id = OLD.%[4]s;
	RETURN OLD;
END;
$$ LANGUAGE plpgsql`, fn, t.parent, t.column, t.key),
		fmt.Sprintf(`DROP TRIGGER IF EXISTS %[1]s ON %[2]s`, fn, t.child),
		fmt.Sprintf(`CREATE TRIGGER %[1]s AFTER INSERT OR DELETE ON %[2]s FOR EACH ROW EXECUTE FUNCTION %[1]s()`, fn, t.child),
	}
}

// Migrate creates the relations and the counter triggers.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&profileRecord{},
		&storyRecord{},
		&storyLikeRecord{},
		&commentRecord{},
		&notificationRecord{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for _, t := range counterTriggers {
			for _, stmt := range t.sql() {
				if err := tx.Exec(stmt).Error; err != nil {
					return fmt.Errorf("install %s counter trigger: %w", t.column, err)
				}
			}
		}
		return nil
	})
}
