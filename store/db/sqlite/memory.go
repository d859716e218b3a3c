package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/echoesapp/echoes/store"
)

func (d *DB) CreateMemory(ctx context.Context, create *store.Memory) (*store.Memory, error) {
	fields := []string{
		"id", "owner_id", "created_ts", "event_ts",
		"title", "description", "latitude", "longitude", "location_name",
		"photo", "has_photo", "voice_note", "has_voice_note",
	}
	placeholderValues := []any{
		create.ID, create.OwnerID, create.CreatedTs, create.EventTs,
		create.Title, create.Description, create.Latitude, create.Longitude, create.LocationName,
		create.Photo, create.HasPhoto, create.VoiceNote, create.HasVoiceNote,
	}

	stmt := `INSERT INTO memory (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(placeholderValues)) + `)`

	if _, err := d.db.ExecContext(ctx, stmt, placeholderValues...); err != nil {
		return nil, fmt.Errorf("failed to create memory: %w", err)
	}

	return create, nil
}

func (d *DB) ListMemories(ctx context.Context, find *store.FindMemory) ([]*store.Memory, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "memory.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.OwnerID; v != nil {
		where, args = append(where, "memory.owner_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	fields := []string{
		"id", "owner_id", "created_ts", "event_ts",
		"title", "description", "latitude", "longitude", "location_name",
		"has_photo", "has_voice_note",
	}
	if find.GetBlobs {
		fields = append(fields, "photo", "voice_note")
	}

	// Newest event first; creation time breaks ties.
	query := `SELECT ` + strings.Join(fields, ", ") + ` FROM memory
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY memory.event_ts DESC, memory.created_ts DESC`

	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Memory, 0)
	for rows.Next() {
		var memory store.Memory
		dests := []any{
			&memory.ID,
			&memory.OwnerID,
			&memory.CreatedTs,
			&memory.EventTs,
			&memory.Title,
			&memory.Description,
			&memory.Latitude,
			&memory.Longitude,
			&memory.LocationName,
			&memory.HasPhoto,
			&memory.HasVoiceNote,
		}
		if find.GetBlobs {
			dests = append(dests, &memory.Photo, &memory.VoiceNote)
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}

		list = append(list, &memory)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memories: %w", err)
	}

	return list, nil
}

func (d *DB) DeleteMemory(ctx context.Context, delete *store.DeleteMemory) error {
	stmt := `DELETE FROM memory WHERE id = ` + placeholder(1)
	result, err := d.db.ExecContext(ctx, stmt, delete.ID)
	if err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("memory not found")
	}

	return nil
}
