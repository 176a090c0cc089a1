package csvstore

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"ReviewsAnalyzer/internal/domain"
)

// aliases maps canonical column names to other headers accepted on read.
var aliases = map[string][]string{
	colBank:     {"bank_code", "bank_id"},
	colText:     {"review", "content", "text"},
	colDate:     {"date", "at"},
	colUsername: {"user_name", "username", "userName"},
	colRating:   {"score", "stars"},
	colThumbsUp: {"thumbsupcount", "thumbs_up_count"},
	colReviewID: {"reviewid", "id"},
}

const (
	colRowID         = "row_id"
	colReviewID      = "review_id"
	colBank          = "bank"
	colBankName      = "bank_name"
	colAppName       = "app_name"
	colText          = "review_text"
	colCleanText     = "clean_text"
	colTextLength    = "text_length"
	colRating        = "rating"
	colDate          = "review_date"
	colUsername      = "username"
	colThumbsUp      = "thumbs_up"
	colReplyContent  = "reply_content"
	colAppVersion    = "app_version"
	colSource        = "source"
	colLemmaText     = "lemma_text"
	colTopic         = "dominant_topic_id"
	colTopicKeywords = "topic_keywords"
	colTheme         = "theme"
	colSentLabel     = "sentiment_label"
	colSentScore     = "sentiment_score"
)

// table gives header-driven access to CSV records.
type table struct {
	path    string
	index   map[string]int
	records [][]string
}

func readTable(path string, required ...string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s has no header", domain.ErrEmptyTable, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	t := &table{path: path, index: headerIndex(header)}
	for _, col := range required {
		if _, ok := t.index[col]; !ok {
			return nil, fmt.Errorf("%w: %s in %s", domain.ErrMissingColumn, col, path)
		}
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	t.records = records
	return t, nil
}

// headerIndex resolves canonical names first, then aliases, so an explicit
// canonical column always beats an alias.
func headerIndex(header []string) map[string]int {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := positions[h]; !dup {
			positions[h] = i
		}
	}

	index := make(map[string]int, len(positions))
	for name, pos := range positions {
		index[name] = pos
	}
	for canonical, alts := range aliases {
		if _, ok := positions[canonical]; ok {
			continue
		}
		for _, alt := range alts {
			if pos, ok := positions[strings.ToLower(alt)]; ok {
				index[canonical] = pos
				break
			}
		}
	}
	return index
}

func (t *table) has(col string) bool {
	_, ok := t.index[col]
	return ok
}

func (t *table) get(record []string, col string) string {
	i, ok := t.index[col]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}

func writeCSVAtomic(path string, header []string, rows [][]string) error {
	return writeAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		if err := cw.WriteAll(rows); err != nil {
			return fmt.Errorf("write rows: %w", err)
		}
		return nil
	})
}

// writeAtomic writes to a temp file beside path and renames it into place.
func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "tmp-*"+filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
