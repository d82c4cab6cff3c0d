package repository

import (
	"database/sql"
	"errors"

	"golang.org/x/text/language"

	"github.com/Clark-Hu/movies-catalog/internal/store"
)

// ErrCorruptRow indicates stored data that cannot be reshaped, such as
// malformed JSON in the genres column. It is never caused by user input.
var ErrCorruptRow = errors.New("repository: corrupt row")

// Repository aggregates all domain-specific repositories.
type Repository struct {
	Movies *MoviesRepository
}

// Option customises repository construction.
type Option func(*options)

type options struct {
	locale language.Tag
}

// WithLocale sets the locale used for budget digit grouping.
func WithLocale(tag language.Tag) Option {
	return func(o *options) {
		o.locale = tag
	}
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store, opts ...Option) *Repository {
	return NewWithDB(st.DB(), opts...)
}

// NewWithDB allows constructing repositories directly from a database handle.
// The handle must already have the ratings store attached.
func NewWithDB(db *sql.DB, opts ...Option) *Repository {
	o := options{locale: language.AmericanEnglish}
	for _, opt := range opts {
		opt(&o)
	}
	return &Repository{
		Movies: &MoviesRepository{db: db, budget: newBudgetFormatter(o.locale)},
	}
}
