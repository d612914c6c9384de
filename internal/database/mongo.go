package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"rollcall/internal/models"
	"rollcall/internal/schedule"
)

// Collection holding the per-guild config documents. Roster sets live in
// one collection each, named after the set.
const configCollection = "config"

// MongoStore is the document-store backend. Field names match the documents
// written by earlier versions of the bot so an existing database can be
// reused.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ Store = (*MongoStore)(nil)

type playerDocument struct {
	Name string `bson:"name"`
	ID   string `bson:"id"`
}

type configSettings struct {
	SessionDM     *playerDocument `bson:"session-dm,omitempty"`
	VCID          string          `bson:"vc-id"`
	SessionDay    int             `bson:"session-day"`
	SessionTime   string          `bson:"session-time"`
	MeetingRoom   string          `bson:"meeting-room"`
	FirstAlert    int             `bson:"first-alert"`
	SecondAlert   int             `bson:"second-alert"`
	Alerts        bool            `bson:"alerts"`
	CancelSession bool            `bson:"cancel-session"`
}

type configDocument struct {
	Guild  string         `bson:"guild"`
	Config configSettings `bson:"config"`
}

// OpenMongo connects to uri and prepares the unique guild indexes.
func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	store := &MongoStore{client: client, db: client.Database(database)}
	if err := store.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return store, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	collections := []string{configCollection}
	for _, set := range []models.RosterSet{models.Players, models.Attendees, models.Decliners, models.Cancellers} {
		collections = append(collections, string(set))
	}
	for _, name := range collections {
		_, err := s.db.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "guild", Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return fmt.Errorf("failed to create guild index on %s: %w", name, err)
		}
	}
	return nil
}

func (d configDocument) toModel() (models.GuildConfig, error) {
	tod, err := schedule.ParseTimeOfDay(d.Config.SessionTime)
	if err != nil {
		return models.GuildConfig{}, fmt.Errorf("guild %s session time: %w", d.Guild, err)
	}
	cfg := models.GuildConfig{
		GuildID:        d.Guild,
		VoiceChannelID: d.Config.VCID,
		SessionDay:     models.Weekday(d.Config.SessionDay),
		SessionTime:    tod,
		MeetingRoomID:  d.Config.MeetingRoom,
		FirstAlert:     models.Weekday(d.Config.FirstAlert),
		SecondAlert:    models.Weekday(d.Config.SecondAlert),
		AlertsEnabled:  d.Config.Alerts,
		CancelSession:  d.Config.CancelSession,
	}
	if d.Config.SessionDM != nil {
		cfg.Organizer = &models.Player{ID: d.Config.SessionDM.ID, Name: d.Config.SessionDM.Name}
	}
	return cfg, nil
}

func documentFromModel(cfg models.GuildConfig) configDocument {
	doc := configDocument{
		Guild: cfg.GuildID,
		Config: configSettings{
			VCID:          cfg.VoiceChannelID,
			SessionDay:    int(cfg.SessionDay),
			SessionTime:   cfg.SessionTime.String(),
			MeetingRoom:   cfg.MeetingRoomID,
			FirstAlert:    int(cfg.FirstAlert),
			SecondAlert:   int(cfg.SecondAlert),
			Alerts:        cfg.AlertsEnabled,
			CancelSession: cfg.CancelSession,
		},
	}
	if cfg.Organizer != nil {
		doc.Config.SessionDM = &playerDocument{Name: cfg.Organizer.Name, ID: cfg.Organizer.ID}
	}
	return doc
}

func (s *MongoStore) GuildConfig(ctx context.Context, guildID string) (models.GuildConfig, error) {
	var doc configDocument
	err := s.db.Collection(configCollection).FindOne(ctx, bson.M{"guild": guildID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.GuildConfig{}, notFound(guildID)
		}
		return models.GuildConfig{}, fmt.Errorf("failed to get guild config: %w", err)
	}
	return doc.toModel()
}

func (s *MongoStore) SaveGuildConfig(ctx context.Context, cfg models.GuildConfig) error {
	_, err := s.db.Collection(configCollection).ReplaceOne(ctx,
		bson.M{"guild": cfg.GuildID},
		documentFromModel(cfg),
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save guild config: %w", err)
	}
	return nil
}

func (s *MongoStore) DeleteGuildConfig(ctx context.Context, guildID string) error {
	res, err := s.db.Collection(configCollection).DeleteOne(ctx, bson.M{"guild": guildID})
	if err != nil {
		return fmt.Errorf("failed to delete guild config: %w", err)
	}
	if res.DeletedCount == 0 {
		return notFound(guildID)
	}
	return nil
}

func (s *MongoStore) ConfigsWhere(ctx context.Context, field models.ConfigField, value models.Weekday) ([]models.GuildConfig, error) {
	if err := checkField(field); err != nil {
		return nil, err
	}
	cursor, err := s.db.Collection(configCollection).Find(ctx,
		bson.M{"config." + string(field): int(value)},
		options.Find().SetSort(bson.D{{Key: "guild", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to get configs by %s: %w", field, err)
	}
	var docs []configDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode configs by %s: %w", field, err)
	}

	configs := make([]models.GuildConfig, 0, len(docs))
	for _, doc := range docs {
		cfg, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

func (s *MongoStore) Members(ctx context.Context, guildID string, set models.RosterSet) ([]models.Player, error) {
	if err := checkSet(set); err != nil {
		return nil, err
	}
	raw, err := s.db.Collection(string(set)).FindOne(ctx, bson.M{"guild": guildID}).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return []models.Player{}, nil
		}
		return nil, fmt.Errorf("failed to get %s: %w", set, err)
	}

	value, err := raw.LookupErr(string(set))
	if err != nil {
		return []models.Player{}, nil
	}
	var docs []playerDocument
	if err := value.Unmarshal(&docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", set, err)
	}

	players := make([]models.Player, 0, len(docs))
	for _, doc := range docs {
		players = append(players, models.Player{ID: doc.ID, Name: doc.Name})
	}
	return players, nil
}

// AddMember makes sure the guild document exists, then pushes the player
// only when no element carries the same id. Both steps are single-document
// atomic updates.
func (s *MongoStore) AddMember(ctx context.Context, guildID string, set models.RosterSet, player models.Player) error {
	if err := checkSet(set); err != nil {
		return err
	}
	coll := s.db.Collection(string(set))
	field := string(set)

	_, err := coll.UpdateOne(ctx,
		bson.M{"guild": guildID},
		bson.M{"$setOnInsert": bson.M{field: bson.A{}}},
		options.Update().SetUpsert(true))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("failed to create %s document: %w", set, err)
	}

	_, err = coll.UpdateOne(ctx,
		bson.M{"guild": guildID, field + ".id": bson.M{"$ne": player.ID}},
		bson.M{"$push": bson.M{field: playerDocument{Name: player.Name, ID: player.ID}}})
	if err != nil {
		return fmt.Errorf("failed to add to %s: %w", set, err)
	}
	return nil
}

func (s *MongoStore) RemoveMember(ctx context.Context, guildID string, set models.RosterSet, playerID string) error {
	if err := checkSet(set); err != nil {
		return err
	}
	field := string(set)
	_, err := s.db.Collection(field).UpdateOne(ctx,
		bson.M{"guild": guildID},
		bson.M{"$pull": bson.M{field: bson.M{"id": playerID}}})
	if err != nil {
		return fmt.Errorf("failed to remove from %s: %w", set, err)
	}
	return nil
}

// MoveMember pulls the player from one set before pushing it to the other.
// The sets are separate collections, so the move is not atomic; a failed
// push leaves the player in neither set.
func (s *MongoStore) MoveMember(ctx context.Context, guildID string, from, to models.RosterSet, player models.Player) error {
	if err := checkSet(to); err != nil {
		return err
	}
	if err := s.RemoveMember(ctx, guildID, from, player.ID); err != nil {
		return err
	}
	return s.AddMember(ctx, guildID, to, player)
}

func (s *MongoStore) ClearRosters(ctx context.Context, guildID string) error {
	for _, set := range models.RSVPSets {
		if _, err := s.db.Collection(string(set)).DeleteMany(ctx, bson.M{"guild": guildID}); err != nil {
			return fmt.Errorf("failed to clear %s: %w", set, err)
		}
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
