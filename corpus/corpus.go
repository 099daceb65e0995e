// Package corpus reads training documents and stopword lists from disk.
//
// A corpus directory holds one entry per category. A sub-directory is a
// category whose files are documents; a regular file is a category whose
// non-blank lines are documents. HTML documents are reduced to their text.
package corpus

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"

	"github.com/hickeroar/ngrambayes/bayes"
)

var nonWord = regexp.MustCompile(`\W+`)

// LoadStopwords reads a stopword file. Words may be separated by any
// non-word characters and are lower-cased.
func LoadStopwords(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read stopwords %s", path)
	}

	var words []string
	for _, word := range nonWord.Split(strings.ToLower(string(data)), -1) {
		if word != "" {
			words = append(words, word)
		}
	}
	return words, nil
}

// LoadDir loads the corpus rooted at path. If path is a regular file it is
// loaded as a single category. Categories without documents are skipped.
func LoadDir(path string) ([]bayes.Shard, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "stat corpus %s", path)
	}
	if !info.IsDir() {
		shard, err := loadLines(path)
		if err != nil || len(shard.Documents) == 0 {
			return nil, err
		}
		return []bayes.Shard{shard}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read corpus %s", path)
	}

	var shards []bayes.Shard
	for _, entry := range entries {
		if isHidden(entry.Name()) {
			continue
		}
		full := filepath.Join(path, entry.Name())

		var shard bayes.Shard
		switch {
		case entry.IsDir():
			shard, err = loadCategoryDir(full)
		case entry.Type().IsRegular():
			shard, err = loadLines(full)
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(shard.Documents) > 0 {
			shards = append(shards, shard)
		}
	}
	return shards, nil
}

// loadCategoryDir reads every file in dir as one document.
func loadCategoryDir(dir string) (bayes.Shard, error) {
	shard := bayes.Shard{Category: filepath.Base(dir)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return bayes.Shard{}, errors.Wrapf(err, "read category %s", dir)
	}
	for _, entry := range entries {
		if entry.IsDir() || isHidden(entry.Name()) {
			continue
		}
		document, err := readDocument(filepath.Join(dir, entry.Name()))
		if err != nil {
			return bayes.Shard{}, err
		}
		shard.Documents = append(shard.Documents, document)
	}
	return shard, nil
}

// loadLines reads a file whose non-blank lines are documents.
func loadLines(path string) (bayes.Shard, error) {
	name := filepath.Base(path)
	shard := bayes.Shard{Category: strings.TrimSuffix(name, filepath.Ext(name))}

	f, err := os.Open(path)
	if err != nil {
		return bayes.Shard{}, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			shard.Documents = append(shard.Documents, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return bayes.Shard{}, errors.Wrapf(err, "scan %s", path)
	}
	return shard, nil
}

func readDocument(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		text, err := HTMLText(f)
		return text, errors.Wrapf(err, "parse %s", path)
	default:
		data, err := io.ReadAll(f)
		if err != nil {
			return "", errors.Wrapf(err, "read %s", path)
		}
		return string(data), nil
	}
}

// HTMLText returns the visible text of an HTML document.
func HTMLText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript").Remove()
	return strings.Join(strings.Fields(doc.Text()), " "), nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
