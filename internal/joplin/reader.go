package joplin

import (
	"context"
	"database/sql"
	"net/url"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	jerrors "github.com/jopsify/jopsify/internal/errors"
)

// Reader provides read-only access to a Joplin sqlite database.
type Reader struct {
	db *sql.DB
}

// Open opens the database read-only. The file must already exist;
// sqlite would otherwise create an empty database and the export would
// silently produce nothing.
func Open(dbPath string) (*Reader, error) {
	// mode=ro needs the URI form, so characters with URI meaning in
	// the path ('?', '#', '%') must be escaped first.
	uri := url.URL{
		Scheme:   "file",
		OmitHost: true,
		Path:     filepath.ToSlash(dbPath),
		RawQuery: "mode=ro",
	}
	db, err := sql.Open("sqlite", uri.String())
	if err != nil {
		return nil, jerrors.Wrap(err, jerrors.CategorySource, jerrors.SeverityFatal, "open joplin database")
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, jerrors.Wrap(err, jerrors.CategorySource, jerrors.SeverityFatal, "joplin database unreadable").
			WithContext("path", dbPath)
	}
	return &Reader{db: db}, nil
}

// Close releases the database handle.
func (r *Reader) Close() error {
	return r.db.Close()
}

// Snapshot reads all folders, notes, resources and tags in one pass.
// folderTagKeywords lists tag names to derive from folder titles
// (typically the configured public and hidden tags).
func (r *Reader) Snapshot(ctx context.Context, folderTagKeywords []string) (*Snapshot, error) {
	folders, err := r.readFolders(ctx, folderTagKeywords)
	if err != nil {
		return nil, err
	}
	noteTags, err := r.readNoteTags(ctx)
	if err != nil {
		return nil, err
	}
	notes, err := r.readNotes(ctx, noteTags)
	if err != nil {
		return nil, err
	}
	resources, err := r.readResources(ctx)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Folders: folders, Notes: notes, Resources: resources}, nil
}

func (r *Reader) readFolders(ctx context.Context, tagKeywords []string) ([]Folder, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, parent_id, created_time, updated_time FROM folders`)
	if err != nil {
		return nil, jerrors.Wrap(err, jerrors.CategorySource, jerrors.SeverityFatal, "query folders")
	}
	defer rows.Close()

	var folders []Folder
	for rows.Next() {
		var f Folder
		var created, updated int64
		if err := rows.Scan(&f.ID, &f.Title, &f.ParentID, &created, &updated); err != nil {
			return nil, jerrors.Wrap(err, jerrors.CategorySource, jerrors.SeverityFatal, "scan folder row")
		}
		f.CreatedTime = fromJoplinTime(created)
		f.UpdatedTime = fromJoplinTime(updated)
		for _, kw := range tagKeywords {
			if containsWord(kw, f.Title) {
				f.Tags = append(f.Tags, kw)
			}
		}
		folders = append(folders, f)
	}
	if err := rows.Err(); err != nil {
		return nil, jerrors.Wrap(err, jerrors.CategorySource, jerrors.SeverityFatal, "iterate folders")
	}
	return folders, nil
}

func (r *Reader) readNoteTags(ctx context.Context) (map[string][]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT nt.note_id, t.title FROM note_tags nt JOIN tags t ON t.id = nt.tag_id`)
	if err != nil {
		return nil, jerrors.Wrap(err, jerrors.CategorySource, jerrors.SeverityFatal, "query note tags")
	}
	defer rows.Close()

	tags := make(map[string][]string)
	for rows.Next() {
		var noteID, title string
		if err := rows.Scan(&noteID, &title); err != nil {
			return nil, jerrors.Wrap(err, jerrors.CategorySource, jerrors.SeverityFatal, "scan note tag row")
		}
		tags[noteID] = append(tags[noteID], title)
	}
	if err := rows.Err(); err != nil {
		return nil, jerrors.Wrap(err, jerrors.CategorySource, jerrors.SeverityFatal, "iterate note tags")
	}
	for _, ts := range tags {
		sort.Strings(ts)
	}
	return tags, nil
}

func (r *Reader) readNotes(ctx context.Context, noteTags map[string][]string) ([]Note, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, parent_id, title, body, created_time, updated_time FROM notes`)
	if err != nil {
		return nil, jerrors.Wrap(err, jerrors.CategorySource, jerrors.SeverityFatal, "query notes")
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		var n Note
		var created, updated int64
		if err := rows.Scan(&n.ID, &n.NotebookID, &n.Title, &n.Body, &created, &updated); err != nil {
			return nil, jerrors.Wrap(err, jerrors.CategorySource, jerrors.SeverityFatal, "scan note row")
		}
		n.CreatedTime = fromJoplinTime(created)
		n.UpdatedTime = fromJoplinTime(updated)
		n.Tags = noteTags[n.ID]
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, jerrors.Wrap(err, jerrors.CategorySource, jerrors.SeverityFatal, "iterate notes")
	}
	return notes, nil
}

func (r *Reader) readResources(ctx context.Context) ([]Resource, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, mime, file_extension, updated_time FROM resources`)
	if err != nil {
		return nil, jerrors.Wrap(err, jerrors.CategorySource, jerrors.SeverityFatal, "query resources")
	}
	defer rows.Close()

	var resources []Resource
	for rows.Next() {
		var res Resource
		var updated int64
		if err := rows.Scan(&res.ID, &res.Title, &res.Mime, &res.FileExtension, &updated); err != nil {
			return nil, jerrors.Wrap(err, jerrors.CategorySource, jerrors.SeverityFatal, "scan resource row")
		}
		res.UpdatedTime = fromJoplinTime(updated)
		resources = append(resources, res)
	}
	if err := rows.Err(); err != nil {
		return nil, jerrors.Wrap(err, jerrors.CategorySource, jerrors.SeverityFatal, "iterate resources")
	}
	return resources, nil
}

// fromJoplinTime converts Joplin's epoch-milliseconds to time.Time (UTC).
func fromJoplinTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// containsWord reports whether text contains word as a whole word,
// case insensitive.
func containsWord(word, text string) bool {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(strings.ToLower(word)) + `\b`)
	return re.MatchString(strings.ToLower(text))
}
