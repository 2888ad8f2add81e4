package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/UkralStul/barfinder-service/internal/storage"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// documentRow - строка таблицы documents: один документ одной коллекции.
type documentRow struct {
	Collection string            `gorm:"primaryKey;type:text"`
	ID         string            `gorm:"primaryKey;type:text"`
	Data       datatypes.JSONMap `gorm:"type:jsonb;not null"`
}

func (documentRow) TableName() string { return "documents" }

// Имена полей подставляются в SQL как ключ jsonb, поэтому допускаются
// только идентификаторы.
var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store реализует интерфейс DocumentStore с использованием PostgreSQL.
type Store struct {
	db *gorm.DB
}

// New создает новый экземпляр хранилища PostgreSQL.
func New(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewWithDB(db)
}

// NewWithDB оборачивает уже открытое соединение и выполняет миграцию схемы.
func NewWithDB(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&documentRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

// === Read Methods ===

func (s *Store) Get(ctx context.Context, collection, id string) (storage.Document, error) {
	var row documentRow
	err := s.db.WithContext(ctx).
		First(&row, "collection = ? AND id = ?", collection, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return toDocument(row), nil
}

func (s *Store) GetAll(ctx context.Context, collection string) ([]storage.Document, error) {
	var rows []documentRow
	err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDocuments(rows), nil
}

func (s *Store) Query(ctx context.Context, collection, field string, value any) ([]storage.Document, error) {
	if !fieldPattern.MatchString(field) {
		return nil, fmt.Errorf("invalid field name %q", field)
	}
	var rows []documentRow
	// ->> отдает текст, сравниваем с текстовым представлением значения.
	err := s.db.WithContext(ctx).
		Where("collection = ? AND data->>'"+field+"' = ?", collection, fmt.Sprint(value)).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDocuments(rows), nil
}

// === Write Methods ===

func (s *Store) Add(ctx context.Context, collection string, doc storage.Document) (string, error) {
	id := uuid.NewString()
	if err := s.Create(ctx, collection, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, doc storage.Document) error {
	row := newRow(collection, id, doc)
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"data"}),
		}).
		Create(&row).Error
}

func (s *Store) Create(ctx context.Context, collection, id string, doc storage.Document) error {
	row := newRow(collection, id, doc)
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrAlreadyExists
	}
	return nil
}

func (s *Store) Update(ctx context.Context, collection, id, field string, value any) error {
	// Используем транзакцию для атомарности операции чтения-записи
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row documentRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&row, "collection = ? AND id = ?", collection, id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		if row.Data == nil {
			row.Data = datatypes.JSONMap{}
		}
		row.Data[field] = value
		return tx.Save(&row).Error
	})
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	res := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Delete(&documentRow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteIf(ctx context.Context, collection, id, field string, expected any) error {
	if !fieldPattern.MatchString(field) {
		return fmt.Errorf("invalid field name %q", field)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("collection = ? AND id = ? AND data->>'"+field+"' = ?", collection, id, fmt.Sprint(expected)).
			Delete(&documentRow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			return nil
		}
		// Ничего не удалено: различаем отсутствие документа и несовпадение поля.
		var count int64
		if err := tx.Model(&documentRow{}).
			Where("collection = ? AND id = ?", collection, id).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return storage.ErrNotFound
		}
		return storage.ErrConflict
	})
}

func newRow(collection, id string, doc storage.Document) documentRow {
	data := datatypes.JSONMap(doc.Clone())
	if data == nil {
		data = datatypes.JSONMap{}
	}
	delete(data, storage.IDField)
	return documentRow{Collection: collection, ID: id, Data: data}
}

func toDocument(row documentRow) storage.Document {
	return storage.WithID(storage.Document(row.Data), row.ID)
}

func toDocuments(rows []documentRow) []storage.Document {
	out := make([]storage.Document, 0, len(rows))
	for _, r := range rows {
		out = append(out, toDocument(r))
	}
	return out
}
