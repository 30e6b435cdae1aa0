package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/small-frappuccino/guildsettings/pkg/settings"
)

// settingsDocument is the stored shape of settings.Settings. Fields that do
// not apply to a kind are omitted.
type settingsDocument struct {
	GuildID             string    `bson:"guildId"`
	Enabled             bool      `bson:"enabled"`
	CooldownMS          *int64    `bson:"cooldown"`
	CustomItems         []string  `bson:"customItems,omitempty"`
	CustomItemsOnly     bool      `bson:"customItemsOnly,omitempty"`
	BlacklistedChannels []string  `bson:"blacklistedChannels,omitempty"`
	ReasonRequired      bool      `bson:"reasonRequired,omitempty"`
	EvidenceRequired    bool      `bson:"evidenceRequired,omitempty"`
	LogChannelID        *string   `bson:"logChannelId,omitempty"`
	DefaultDurationMS   int64     `bson:"defaultDuration,omitempty"`
	MuteRoleID          *string   `bson:"muteRoleId,omitempty"`
	UpdatedAt           time.Time `bson:"updatedAt"`
}

// MongoStore keeps each kind in its own collection, one document per guild.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
}

// ConnectMongo dials uri, checks the connection and ensures indexes.
func ConnectMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := NewMongoStore(client, database)
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// NewMongoStore wraps an existing client.
func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	return &MongoStore{client: client, db: client.Database(database), now: time.Now}
}

// CollectionName is the collection holding kind k.
func CollectionName(k settings.Kind) string {
	return string(k) + "_command_settings"
}

// EnsureIndexes creates the unique guild index on every kind collection.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	for _, f := range settings.Families() {
		for _, k := range f.Kinds() {
			_, err := s.db.Collection(CollectionName(k)).Indexes().CreateOne(ctx, mongo.IndexModel{
				Keys:    bson.D{{Key: "guildId", Value: 1}},
				Options: options.Index().SetUnique(true),
			})
			if err != nil {
				return fmt.Errorf("create %s index: %w", k, err)
			}
		}
	}
	return nil
}

// FindOrCreate upserts the kind defaults with $setOnInsert and returns the
// resulting document.
func (s *MongoStore) FindOrCreate(ctx context.Context, kind settings.Kind, guildID string) (settings.Settings, error) {
	if s.db == nil {
		return settings.Settings{}, ErrNotInitialized
	}
	doc := toDocument(settings.Defaults(guildID, kind), s.now())

	var out settingsDocument
	err := s.db.Collection(CollectionName(kind)).FindOneAndUpdate(ctx,
		bson.M{"guildId": guildID},
		bson.M{"$setOnInsert": doc},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&out)
	if err != nil {
		return settings.Settings{}, fmt.Errorf("find or create %s settings: %w", kind, err)
	}
	return fromDocument(kind, out), nil
}

// Update replaces every field of the guild's document.
func (s *MongoStore) Update(ctx context.Context, in settings.Settings) (settings.Settings, error) {
	if s.db == nil {
		return settings.Settings{}, ErrNotInitialized
	}

	var out settingsDocument
	err := s.db.Collection(CollectionName(in.Kind)).FindOneAndReplace(ctx,
		bson.M{"guildId": in.GuildID},
		toDocument(in, s.now()),
		options.FindOneAndReplace().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&out)
	if err != nil {
		return settings.Settings{}, fmt.Errorf("update %s settings: %w", in.Kind, err)
	}
	return fromDocument(in.Kind, out), nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func toDocument(s settings.Settings, now time.Time) settingsDocument {
	doc := settingsDocument{
		GuildID:   s.GuildID,
		Enabled:   s.Enabled,
		UpdatedAt: now.UTC(),
	}
	switch s.Kind.Family() {
	case settings.FamilyFun:
		if s.Fun.Cooldown != nil {
			ms := s.Fun.Cooldown.Milliseconds()
			doc.CooldownMS = &ms
		}
		doc.CustomItems = nonNil(s.Fun.CustomItems)
		doc.CustomItemsOnly = s.Fun.CustomItemsOnly
		doc.BlacklistedChannels = nonNil(s.Fun.BlacklistedChannels)
	case settings.FamilyModeration:
		doc.ReasonRequired = s.Moderation.ReasonRequired
		doc.EvidenceRequired = s.Moderation.EvidenceRequired
		doc.LogChannelID = optionalString(s.Moderation.LogChannelID)
		doc.DefaultDurationMS = s.Moderation.DefaultDuration.Milliseconds()
		doc.MuteRoleID = optionalString(s.Moderation.MuteRoleID)
	}
	return doc
}

func fromDocument(kind settings.Kind, doc settingsDocument) settings.Settings {
	out := settings.Settings{
		GuildID:   doc.GuildID,
		Kind:      kind,
		Enabled:   doc.Enabled,
		UpdatedAt: doc.UpdatedAt,
	}
	if doc.CooldownMS != nil {
		d := time.Duration(*doc.CooldownMS) * time.Millisecond
		out.Fun.Cooldown = &d
	}
	out.Fun.CustomItems = nonNil(doc.CustomItems)
	out.Fun.CustomItemsOnly = doc.CustomItemsOnly
	out.Fun.BlacklistedChannels = nonNil(doc.BlacklistedChannels)
	out.Moderation.ReasonRequired = doc.ReasonRequired
	out.Moderation.EvidenceRequired = doc.EvidenceRequired
	if doc.LogChannelID != nil {
		out.Moderation.LogChannelID = *doc.LogChannelID
	}
	out.Moderation.DefaultDuration = time.Duration(doc.DefaultDurationMS) * time.Millisecond
	if doc.MuteRoleID != nil {
		out.Moderation.MuteRoleID = *doc.MuteRoleID
	}
	return out
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
