package storage

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"gemini-bot/internal/apperr"
	"gemini-bot/internal/models"
)

const (
	usersCollection = "users"
	chatsCollection = "chats"
	filesCollection = "files"
)

type userDoc struct {
	ID            bson.ObjectID `bson:"_id,omitempty"`
	ChatID        int64         `bson:"chat_id"`
	FirstName     string        `bson:"first_name"`
	Username      string        `bson:"username,omitempty"`
	PhoneNumber   *string       `bson:"phone_number"`
	ReferralCode  string        `bson:"referral_code"`
	ReferredBy    *int64        `bson:"referred_by,omitempty"`
	ReferralCount int64         `bson:"referral_count"`
	LastActive    *time.Time    `bson:"last_active,omitempty"`
	CreatedAt     time.Time     `bson:"created_at"`
}

func (d userDoc) model() models.User {
	return models.User{
		ChatID:        d.ChatID,
		FirstName:     d.FirstName,
		Username:      d.Username,
		PhoneNumber:   d.PhoneNumber,
		ReferralCode:  d.ReferralCode,
		ReferredBy:    d.ReferredBy,
		ReferralCount: d.ReferralCount,
		LastActive:    d.LastActive,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.CreatedAt,
	}
}

type chatDoc struct {
	UserID      int64     `bson:"user_id"`
	UserMessage string    `bson:"user_message"`
	BotResponse string    `bson:"bot_response"`
	Timestamp   time.Time `bson:"timestamp"`
}

type fileDoc struct {
	UserID      int64     `bson:"user_id"`
	FileID      string    `bson:"file_id"`
	FileName    string    `bson:"file_name"`
	MimeType    string    `bson:"mime_type"`
	Description string    `bson:"description"`
	Timestamp   time.Time `bson:"timestamp"`
}

// MongoStore keeps the three record kinds in separate collections. The
// referral increment is a $inc issued right after the winning upsert; it is
// not wrapped in a multi-document transaction, which would need a replica
// set.
type MongoStore struct {
	users *mongo.Collection
	chats *mongo.Collection
	files *mongo.Collection
	now   func() time.Time
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		users: db.Collection(usersCollection),
		chats: db.Collection(chatsCollection),
		files: db.Collection(filesCollection),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *MongoStore) Migrate(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "chat_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "referral_code", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "referral_count", Value: -1}, {Key: "_id", Value: 1}}},
	})
	if err != nil {
		return apperr.Storage("migrate users", err)
	}
	historyIndex := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: 1}}},
	}
	if _, err := s.chats.Indexes().CreateMany(ctx, historyIndex); err != nil {
		return apperr.Storage("migrate chats", err)
	}
	if _, err := s.files.Indexes().CreateMany(ctx, historyIndex); err != nil {
		return apperr.Storage("migrate files", err)
	}
	return nil
}

func (s *MongoStore) RegisterUser(ctx context.Context, chatID int64, firstName, username string) (bool, error) {
	return s.CreateUser(ctx, models.NewUser(chatID, firstName, username))
}

func (s *MongoStore) CreateUser(ctx context.Context, user *models.User) (bool, error) {
	prepareUser(user)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}

	onInsert := bson.M{
		"first_name":     user.FirstName,
		"phone_number":   user.PhoneNumber,
		"referral_code":  user.ReferralCode,
		"referral_count": int64(0),
		"created_at":     user.CreatedAt,
	}
	if user.Username != "" {
		onInsert["username"] = user.Username
	}
	if user.ReferredBy != nil {
		onInsert["referred_by"] = *user.ReferredBy
	}

	res, err := s.users.UpdateOne(ctx,
		bson.M{"chat_id": user.ChatID},
		bson.M{"$setOnInsert": onInsert},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		// Two concurrent upserts can both miss the filter; the unique index
		// rejects the loser.
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, apperr.Storage("create user", err)
	}
	if res.UpsertedCount == 0 {
		return false, nil
	}

	if user.ReferredBy != nil {
		_, err := s.users.UpdateOne(ctx,
			bson.M{"chat_id": *user.ReferredBy},
			bson.M{"$inc": bson.M{"referral_count": 1}},
		)
		if err != nil {
			return true, apperr.Storage("increment referral count", err)
		}
	}
	return true, nil
}

func (s *MongoStore) SetPhoneNumber(ctx context.Context, chatID int64, phone string) error {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"chat_id": chatID},
		bson.M{"$set": bson.M{"phone_number": phone}},
	)
	if err != nil {
		return apperr.Storage("set phone number", err)
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (s *MongoStore) GetUser(ctx context.Context, chatID int64) (*models.User, error) {
	return s.findUser(ctx, "get user", bson.M{"chat_id": chatID})
}

func (s *MongoStore) FindByReferralCode(ctx context.Context, code string) (*models.User, error) {
	return s.findUser(ctx, "find by referral code", bson.M{"referral_code": code})
}

func (s *MongoStore) findUser(ctx context.Context, op string, filter bson.M) (*models.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.Storage(op, err)
	}
	u := doc.model()
	return &u, nil
}

func (s *MongoStore) AppendChat(ctx context.Context, record *models.ChatRecord) error {
	_, err := s.chats.InsertOne(ctx, chatDoc{
		UserID:      record.UserID,
		UserMessage: record.UserMessage,
		BotResponse: record.BotResponse,
		Timestamp:   record.Timestamp,
	})
	return apperr.Storage("append chat", err)
}

func (s *MongoStore) AppendFile(ctx context.Context, record *models.FileRecord) error {
	_, err := s.files.InsertOne(ctx, fileDoc{
		UserID:      record.UserID,
		FileID:      record.FileID,
		FileName:    record.FileName,
		MimeType:    record.MimeType,
		Description: record.Description,
		Timestamp:   record.Timestamp,
	})
	return apperr.Storage("append file", err)
}

func historyOptions(limit int) *options.FindOptionsBuilder {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return opts
}

func (s *MongoStore) ChatHistory(ctx context.Context, chatID int64, limit int) ([]models.ChatRecord, error) {
	cursor, err := s.chats.Find(ctx, bson.M{"user_id": chatID}, historyOptions(limit))
	if err != nil {
		return nil, apperr.Storage("chat history", err)
	}
	defer cursor.Close(ctx)

	var docs []chatDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, apperr.Storage("chat history", err)
	}
	out := make([]models.ChatRecord, 0, len(docs))
	for _, d := range docs {
		out = append(out, models.ChatRecord{
			UserID:      d.UserID,
			UserMessage: d.UserMessage,
			BotResponse: d.BotResponse,
			Timestamp:   d.Timestamp,
		})
	}
	return out, nil
}

func (s *MongoStore) FileHistory(ctx context.Context, chatID int64, limit int) ([]models.FileRecord, error) {
	cursor, err := s.files.Find(ctx, bson.M{"user_id": chatID}, historyOptions(limit))
	if err != nil {
		return nil, apperr.Storage("file history", err)
	}
	defer cursor.Close(ctx)

	var docs []fileDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, apperr.Storage("file history", err)
	}
	out := make([]models.FileRecord, 0, len(docs))
	for _, d := range docs {
		out = append(out, models.FileRecord{
			UserID:      d.UserID,
			FileID:      d.FileID,
			FileName:    d.FileName,
			MimeType:    d.MimeType,
			Description: d.Description,
			Timestamp:   d.Timestamp,
		})
	}
	return out, nil
}

func (s *MongoStore) CountUsers(ctx context.Context) (int64, error) {
	n, err := s.users.CountDocuments(ctx, bson.M{})
	return n, apperr.Storage("count users", err)
}

func (s *MongoStore) CountActiveUsers(ctx context.Context) (int64, error) {
	n, err := s.users.CountDocuments(ctx, bson.M{"last_active": bson.M{"$exists": true}})
	return n, apperr.Storage("count active users", err)
}

func (s *MongoStore) CountMessages(ctx context.Context) (int64, error) {
	n, err := s.chats.CountDocuments(ctx, bson.M{})
	return n, apperr.Storage("count messages", err)
}

func (s *MongoStore) TopReferrers(ctx context.Context, limit int) ([]models.User, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "referral_count", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	cursor, err := s.users.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, apperr.Storage("top referrers", err)
	}
	defer cursor.Close(ctx)

	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, apperr.Storage("top referrers", err)
	}
	out := make([]models.User, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}
