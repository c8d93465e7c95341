package database

import (
	"github.com/athlink/feedengine/pkg/internal/remote"
	"gorm.io/gorm"
)

var AutoMaintainRange = []any{
	&remote.PostRecord{},
	&remote.ProfileRecord{},
	&remote.CommentRecord{},
}

func RunMigration(source *gorm.DB) error {
	if err := source.AutoMigrate(AutoMaintainRange...); err != nil {
		return err
	}

	return nil
}
