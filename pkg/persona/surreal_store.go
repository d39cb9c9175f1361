package persona

import (
	"fmt"
	"strings"

	"personabot/pkg/surreal"
)

// SurrealStore persists personas in SurrealDB. The persona name is
// used as the record id (personas:<name>), so uniqueness is enforced
// by the database itself.
type SurrealStore struct {
	client *surreal.Client
}

func NewSurrealStore(client *surreal.Client) *SurrealStore {
	store := &SurrealStore{client: client}
	if err := store.Init(); err != nil {
		// Log error but don't fail startup, as DB might be reachable later or schema exists
		fmt.Printf("Warning: Failed to initialize SurrealDB schema: %v\n", err)
	}
	return store
}

func (s *SurrealStore) Init() error {
	query := `
		DEFINE TABLE IF NOT EXISTS personas SCHEMAFULL;
		DEFINE FIELD IF NOT EXISTS name ON personas TYPE string;
		DEFINE FIELD IF NOT EXISTS content ON personas TYPE string;
		DEFINE FIELD IF NOT EXISTS creator_id ON personas TYPE string;
		DEFINE FIELD IF NOT EXISTS is_default ON personas TYPE bool DEFAULT false;
		DEFINE FIELD IF NOT EXISTS snapshot ON personas TYPE option<string>;
	`
	_, err := s.client.Query(query, nil)
	return err
}

func (s *SurrealStore) Get(name string) (*Persona, error) {
	query := `SELECT name, content, creator_id, is_default, snapshot FROM type::thing("personas", $name);`
	result, err := s.client.Query(query, map[string]interface{}{"name": name})
	if err != nil {
		return nil, err
	}

	row, ok := firstRow(result)
	if !ok {
		return nil, ErrNotFound
	}
	return personaFromRow(row), nil
}

func (s *SurrealStore) GetDefault() (*Persona, error) {
	query := `SELECT name, content, creator_id, is_default, snapshot FROM personas WHERE is_default = true LIMIT 1;`
	result, err := s.client.Query(query, nil)
	if err != nil {
		return nil, err
	}

	row, ok := firstRow(result)
	if !ok {
		return nil, ErrNoDefault
	}
	return personaFromRow(row), nil
}

func (s *SurrealStore) Insert(name, content, creatorID string) error {
	query := `
		CREATE type::thing("personas", $name) SET
			name = $name,
			content = $content,
			creator_id = $creator_id,
			is_default = false;
	`
	_, err := s.client.Query(query, map[string]interface{}{
		"name":       name,
		"content":    content,
		"creator_id": creatorID,
	})
	if err != nil {
		// The record id carries the name, so a duplicate surfaces as
		// a database-level "already exists" failure.
		if strings.Contains(err.Error(), "already exists") {
			return ErrExists
		}
		return fmt.Errorf("failed to insert persona: %w", err)
	}
	return nil
}

func (s *SurrealStore) UpdateContent(name, content string) error {
	query := `UPDATE type::thing("personas", $name) SET content = $content RETURN AFTER;`
	result, err := s.client.Query(query, map[string]interface{}{
		"name":    name,
		"content": content,
	})
	if err != nil {
		return fmt.Errorf("failed to update persona: %w", err)
	}
	if _, ok := firstRow(result); !ok {
		return ErrNotFound
	}
	return nil
}

func (s *SurrealStore) UpdateDefaultContent(content string) error {
	query := `UPDATE personas SET content = $content WHERE is_default = true RETURN AFTER;`
	result, err := s.client.Query(query, map[string]interface{}{"content": content})
	if err != nil {
		return fmt.Errorf("failed to update default persona: %w", err)
	}
	if _, ok := firstRow(result); !ok {
		return ErrNoDefault
	}
	return nil
}

func (s *SurrealStore) SetDefault(name string) error {
	if _, err := s.Get(name); err != nil {
		return err
	}

	// Clearing the old flag and setting the new one happen in one
	// transaction so a failure cannot leave two defaults set.
	query := `
		BEGIN TRANSACTION;
		UPDATE personas SET is_default = false WHERE is_default = true;
		UPDATE type::thing("personas", $name) SET is_default = true;
		COMMIT TRANSACTION;
	`
	_, err := s.client.Query(query, map[string]interface{}{"name": name})
	if err != nil {
		return fmt.Errorf("failed to change default persona: %w", err)
	}
	return nil
}

func (s *SurrealStore) Delete(name string) error {
	p, err := s.Get(name)
	if err != nil {
		return err
	}
	if p.IsDefault {
		return ErrIsDefault
	}

	query := `DELETE type::thing("personas", $name);`
	if _, err := s.client.Query(query, map[string]interface{}{"name": name}); err != nil {
		return fmt.Errorf("failed to delete persona: %w", err)
	}
	return nil
}

func (s *SurrealStore) List(search string) ([]Summary, error) {
	query := `SELECT name, is_default, creator_id FROM personas ORDER BY is_default DESC, name ASC;`
	vars := map[string]interface{}{}
	if search != "" {
		query = `SELECT name, is_default, creator_id FROM personas WHERE string::contains(name, $search) ORDER BY is_default DESC, name ASC;`
		vars["search"] = search
	}

	result, err := s.client.Query(query, vars)
	if err != nil {
		return nil, err
	}

	rows, ok := result.([]interface{})
	if !ok {
		return []Summary{}, nil
	}

	var summaries []Summary
	for _, row := range rows {
		rowMap, ok := row.(map[string]interface{})
		if !ok {
			continue
		}
		summary := Summary{}
		if v, ok := rowMap["name"].(string); ok {
			summary.Name = v
		}
		if v, ok := rowMap["is_default"].(bool); ok {
			summary.IsDefault = v
		}
		if v, ok := rowMap["creator_id"].(string); ok {
			summary.CreatorID = v
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *SurrealStore) SetSnapshot(content string) error {
	query := `UPDATE personas SET snapshot = $snapshot WHERE is_default = true RETURN AFTER;`
	result, err := s.client.Query(query, map[string]interface{}{"snapshot": content})
	if err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	if _, ok := firstRow(result); !ok {
		return ErrNoDefault
	}
	return nil
}

func (s *SurrealStore) Snapshot() (string, bool, error) {
	query := `SELECT snapshot FROM personas WHERE is_default = true LIMIT 1;`
	result, err := s.client.Query(query, nil)
	if err != nil {
		return "", false, err
	}

	row, ok := firstRow(result)
	if !ok {
		return "", false, ErrNoDefault
	}
	if snap, ok := row["snapshot"].(string); ok {
		return snap, true, nil
	}
	return "", false, nil
}

func (s *SurrealStore) ClearSnapshot() error {
	query := `UPDATE personas SET snapshot = NONE WHERE is_default = true;`
	_, err := s.client.Query(query, nil)
	return err
}

func firstRow(result interface{}) (map[string]interface{}, bool) {
	rows, ok := result.([]interface{})
	if !ok || len(rows) == 0 {
		return nil, false
	}
	row, ok := rows[0].(map[string]interface{})
	return row, ok
}

func personaFromRow(row map[string]interface{}) *Persona {
	p := &Persona{}
	if v, ok := row["name"].(string); ok {
		p.Name = v
	}
	if v, ok := row["content"].(string); ok {
		p.Content = v
	}
	if v, ok := row["creator_id"].(string); ok {
		p.CreatorID = v
	}
	if v, ok := row["is_default"].(bool); ok {
		p.IsDefault = v
	}
	if v, ok := row["snapshot"].(string); ok {
		snap := v
		p.Snapshot = &snap
	}
	return p
}
