package issuedb

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates the issue does not exist in the store.
var ErrNotFound = errors.New("issue not found")

// Issue is a locally tracked issue record.
type Issue struct {
	ID          string
	Title       string
	Description string
	Labels      []string
	State       string // "open" or "closed"
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Comment is a note attached to a local issue.
type Comment struct {
	ID        string
	IssueID   string
	Author    string
	Body      string
	CreatedAt time.Time
}

// Create inserts a new issue. A missing ID is generated.
func (db *DB) Create(issue Issue) (Issue, error) {
	if issue.ID == "" {
		issue.ID = uuid.New().String()
	}
	if issue.State == "" {
		issue.State = "open"
	}
	now := time.Now().UTC()
	issue.CreatedAt = now
	issue.UpdatedAt = now

	_, err := db.conn.Exec(`
		INSERT INTO issues (id, title, description, labels, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		issue.ID, issue.Title, issue.Description, joinLabels(issue.Labels), issue.State,
		issue.CreatedAt.Format(time.RFC3339), issue.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return Issue{}, fmt.Errorf("creating issue: %w", err)
	}
	return issue, nil
}

// Get returns the issue with the given ID, or ErrNotFound.
func (db *DB) Get(id string) (Issue, error) {
	row := db.conn.QueryRow(`
		SELECT id, title, description, labels, state, created_at, updated_at
		FROM issues WHERE id = ?`, id)

	issue, err := scanIssue(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Issue{}, ErrNotFound
	}
	if err != nil {
		return Issue{}, fmt.Errorf("getting issue: %w", err)
	}
	return issue, nil
}

// List returns issues, optionally filtered by state ("" means all).
func (db *DB) List(state string) ([]Issue, error) {
	query := `
		SELECT id, title, description, labels, state, created_at, updated_at
		FROM issues`
	var args []any
	if state != "" {
		query += " WHERE state = ?"
		args = append(args, state)
	}
	query += " ORDER BY created_at DESC"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing issues: %w", err)
	}
	defer rows.Close()

	var issues []Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning issue: %w", err)
		}
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}

// SetState updates the state of an issue.
func (db *DB) SetState(id, state string) error {
	res, err := db.conn.Exec(`
		UPDATE issues SET state = ?, updated_at = ? WHERE id = ?`,
		state, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("updating issue state: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AddComment attaches a comment to an issue.
func (db *DB) AddComment(issueID, author, body string) (Comment, error) {
	if _, err := db.Get(issueID); err != nil {
		return Comment{}, err
	}

	c := Comment{
		ID:        uuid.New().String(),
		IssueID:   issueID,
		Author:    author,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	_, err := db.conn.Exec(`
		INSERT INTO comments (id, issue_id, author, body, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.IssueID, c.Author, c.Body, c.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return Comment{}, fmt.Errorf("adding comment: %w", err)
	}
	return c, nil
}

// Comments lists the comments on an issue, oldest first.
func (db *DB) Comments(issueID string) ([]Comment, error) {
	rows, err := db.conn.Query(`
		SELECT id, issue_id, author, body, created_at
		FROM comments WHERE issue_id = ? ORDER BY created_at ASC`, issueID)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	defer rows.Close()

	var comments []Comment
	for rows.Next() {
		var c Comment
		var createdAt string
		if err := rows.Scan(&c.ID, &c.IssueID, &c.Author, &c.Body, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning comment: %w", err)
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIssue(row rowScanner) (Issue, error) {
	var issue Issue
	var labels, createdAt, updatedAt string
	if err := row.Scan(&issue.ID, &issue.Title, &issue.Description, &labels,
		&issue.State, &createdAt, &updatedAt); err != nil {
		return Issue{}, err
	}
	issue.Labels = splitLabels(labels)
	issue.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	issue.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return issue, nil
}

func joinLabels(labels []string) string {
	return strings.Join(labels, ",")
}

func splitLabels(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
