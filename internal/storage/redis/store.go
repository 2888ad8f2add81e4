package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/UkralStul/barfinder-service/internal/storage"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultPrefix - префикс ключей коллекций.
const DefaultPrefix = "barfinder:"

const maxUpdateRetries = 5

// deleteIfScript: 1 - удалено, 0 - документа нет, -1 - поле не совпало.
var deleteIfScript = goredis.NewScript(`
local raw = redis.call('HGET', KEYS[1], ARGV[1])
if not raw then
  return 0
end
local doc = cjson.decode(raw)
local actual = doc[ARGV[2]]
if actual == nil or actual == cjson.null or tostring(actual) ~= ARGV[3] then
  return -1
end
redis.call('HDEL', KEYS[1], ARGV[1])
return 1
`)

// Store хранит каждую коллекцию в отдельном hash: поле - id, значение - JSON документа.
type Store struct {
	client *goredis.Client
	prefix string
	logger zerolog.Logger
}

// Option настраивает Store.
type Option func(*Store)

// WithLogger задает логгер для предупреждений о битых документах.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Options - параметры подключения.
type Options struct {
	Addr     string
	Password string
	DB       int
	Logger   zerolog.Logger
}

// Open подключается к Redis и проверяет соединение.
func Open(ctx context.Context, opts Options) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return New(client, DefaultPrefix, WithLogger(opts.Logger)), nil
}

// New оборачивает готовый клиент.
func New(client *goredis.Client, prefix string, opts ...Option) *Store {
	s := &Store{client: client, prefix: prefix, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close закрывает клиент.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(collection string) string {
	return s.prefix + collection
}

// === Read Methods ===

func (s *Store) Get(ctx context.Context, collection, id string) (storage.Document, error) {
	raw, err := s.client.HGet(ctx, s.key(collection), id).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return decode(id, raw)
}

func (s *Store) GetAll(ctx context.Context, collection string) ([]storage.Document, error) {
	return s.scan(ctx, collection, func(storage.Document) bool { return true })
}

func (s *Store) Query(ctx context.Context, collection, field string, value any) ([]storage.Document, error) {
	return s.scan(ctx, collection, func(d storage.Document) bool {
		return storage.Matches(d[field], value)
	})
}

func (s *Store) scan(ctx context.Context, collection string, keep func(storage.Document) bool) ([]storage.Document, error) {
	all, err := s.client.HGetAll(ctx, s.key(collection)).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]storage.Document, 0, len(ids))
	for _, id := range ids {
		doc, err := decode(id, all[id])
		if err != nil {
			// Битое значение не должно прятать остальные документы коллекции.
			s.logger.Warn().Err(err).Str("collection", collection).Str("id", id).Msg("skipping undecodable document")
			continue
		}
		if keep(doc) {
			out = append(out, doc)
		}
	}
	return out, nil
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
	raw, err := encode(doc)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.key(collection), id, raw).Err()
}

func (s *Store) Create(ctx context.Context, collection, id string, doc storage.Document) error {
	raw, err := encode(doc)
	if err != nil {
		return err
	}
	ok, err := s.client.HSetNX(ctx, s.key(collection), id, raw).Result()
	if err != nil {
		return err
	}
	if !ok {
		return storage.ErrAlreadyExists
	}
	return nil
}

// Update - чтение-изменение-запись под WATCH; при конкурентной записи повторяется.
func (s *Store) Update(ctx context.Context, collection, id, field string, value any) error {
	key := s.key(collection)
	txf := func(tx *goredis.Tx) error {
		raw, err := tx.HGet(ctx, key, id).Result()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				return storage.ErrNotFound
			}
			return err
		}
		doc, err := decode(id, raw)
		if err != nil {
			return err
		}
		doc[field] = value
		updated, err := encode(doc)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HSet(ctx, key, id, updated)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("update %s/%s: %w", collection, id, storage.ErrConflict)
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	n, err := s.client.HDel(ctx, s.key(collection), id).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteIf(ctx context.Context, collection, id, field string, expected any) error {
	res, err := deleteIfScript.Run(ctx, s.client, []string{s.key(collection)}, id, field, fmt.Sprint(expected)).Int()
	if err != nil {
		return err
	}
	switch res {
	case 1:
		return nil
	case 0:
		return storage.ErrNotFound
	default:
		return storage.ErrConflict
	}
}

func encode(doc storage.Document) (string, error) {
	clean := doc.Clone()
	if clean == nil {
		clean = storage.Document{}
	}
	delete(clean, storage.IDField)
	raw, err := json.Marshal(clean)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(raw), nil
}

func decode(id, raw string) (storage.Document, error) {
	var doc storage.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	return storage.WithID(doc, id), nil
}
