// Package config loads ngrambayes settings from YAML.
package config

import (
	"io"
	"math"
	"os"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/hickeroar/ngrambayes/bayes"
	"github.com/hickeroar/ngrambayes/bayes/stemmer"
	"github.com/hickeroar/ngrambayes/corpus"
)

// Log formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config is the full application configuration.
type Config struct {
	Port         string     `yaml:"port"`
	AuthToken    string     `yaml:"auth_token"`
	AutoFinalize bool       `yaml:"auto_finalize"`
	Log          Log        `yaml:"log"`
	Classifier   Classifier `yaml:"classifier"`
	Corpus       Corpus     `yaml:"corpus"`
}

// Log configures the process logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Classifier holds the options passed to bayes.NewClassifier.
type Classifier struct {
	NgramDepth    int      `yaml:"ngram_depth"`
	Alpha         float64  `yaml:"alpha"`
	Stemmer       string   `yaml:"stemmer"`
	FoldAccents   bool     `yaml:"fold_accents"`
	Workers       int      `yaml:"workers"`
	Stopwords     []string `yaml:"stopwords"`
	StopwordsFile string   `yaml:"stopwords_file"`
}

// Corpus names a training source. At most one of Dir and SQLite may be set.
type Corpus struct {
	Dir    string `yaml:"dir"`
	SQLite string `yaml:"sqlite"`
	Query  string `yaml:"query"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Port:         "8000",
		AutoFinalize: true,
		Log: Log{
			Level:  zerolog.LevelInfoValue,
			Format: FormatJSON,
		},
		Classifier: Classifier{
			NgramDepth: bayes.DefaultNgramDepth,
			Alpha:      bayes.DefaultAlpha,
			Stemmer:    stemmer.PorterName,
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return errors.Newf("invalid port %q", c.Port)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrapf(err, "invalid log level %q", c.Log.Level)
	}
	if c.Log.Format != FormatJSON && c.Log.Format != FormatConsole {
		return errors.Newf("invalid log format %q: want %s or %s", c.Log.Format, FormatJSON, FormatConsole)
	}
	if c.Classifier.NgramDepth < 1 {
		return errors.Newf("invalid ngram_depth %d: must be at least 1", c.Classifier.NgramDepth)
	}
	if !(c.Classifier.Alpha > 0) || math.IsInf(c.Classifier.Alpha, 1) {
		return errors.Newf("invalid alpha %v: must be a positive finite number", c.Classifier.Alpha)
	}
	if c.Classifier.Workers < 0 {
		return errors.Newf("invalid workers %d: must not be negative", c.Classifier.Workers)
	}
	if _, err := stemmer.ByName(c.Classifier.Stemmer); err != nil {
		return errors.Wrap(err, "invalid stemmer")
	}
	if c.Corpus.Dir != "" && c.Corpus.SQLite != "" {
		return errors.New("corpus dir and sqlite are mutually exclusive")
	}
	return nil
}

// LoadStopwords returns the inline stopwords followed by those in StopwordsFile.
func (c Classifier) LoadStopwords() ([]string, error) {
	words := append([]string(nil), c.Stopwords...)
	if c.StopwordsFile == "" {
		return words, nil
	}

	fromFile, err := corpus.LoadStopwords(c.StopwordsFile)
	if err != nil {
		return nil, err
	}
	return append(words, fromFile...), nil
}

// Options converts the settings to classifier options.
func (c Classifier) Options(logger zerolog.Logger) ([]bayes.Option, error) {
	stopwords, err := c.LoadStopwords()
	if err != nil {
		return nil, err
	}

	return []bayes.Option{
		bayes.WithStopwords(stopwords),
		bayes.WithNgramDepth(c.NgramDepth),
		bayes.WithAlpha(c.Alpha),
		bayes.WithStemmerName(c.Stemmer),
		bayes.WithFoldAccents(c.FoldAccents),
		bayes.WithWorkers(c.Workers),
		bayes.WithLogger(logger),
	}, nil
}

// NewLogger builds the process logger described by l.
func (l Log) NewLogger(out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(l.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if l.Format == FormatConsole {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out})
	} else {
		logger = zerolog.New(out)
	}
	return logger.Level(level).With().Timestamp().Logger()
}
