package chunk

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChunkRow stores one gzip-compressed Tiled JSON chunk.
type ChunkRow struct {
	MapID     string    `gorm:"column:map_id;primaryKey;size:64"`
	CX        int32     `gorm:"column:cx;primaryKey"`
	CY        int32     `gorm:"column:cy;primaryKey"`
	Payload   []byte    `gorm:"column:payload;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (ChunkRow) TableName() string {
	return "map_chunks"
}

func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

// GormSource serves chunks of one map from the map_chunks table.
type GormSource struct {
	db    *gorm.DB
	mapID string
}

func NewGormSource(db *gorm.DB, mapID string) *GormSource {
	return &GormSource{db: db, mapID: mapID}
}

func (s *GormSource) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&ChunkRow{})
}

func (s *GormSource) Fetch(ctx context.Context, coord Coord) ([]byte, error) {
	var row ChunkRow
	err := s.db.WithContext(ctx).
		Where(&ChunkRow{MapID: s.mapID, CX: int32(coord.X), CY: int32(coord.Y)}).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", ErrChunkNotFound, s.mapID, coord.Key())
		}
		return nil, fmt.Errorf("query %s: %w", coord.Key(), err)
	}
	data, err := decompressPayload(row.Payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", coord.Key(), err)
	}
	return data, nil
}

// Save upserts the raw Tiled JSON for coord.
func (s *GormSource) Save(ctx context.Context, coord Coord, data []byte) error {
	payload, err := compressPayload(data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", coord.Key(), err)
	}
	row := ChunkRow{
		MapID:     s.mapID,
		CX:        int32(coord.X),
		CY:        int32(coord.Y),
		Payload:   payload,
		UpdatedAt: time.Now(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "map_id"}, {Name: "cx"}, {Name: "cy"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&row).Error
}

func compressPayload(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressPayload(payload []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
