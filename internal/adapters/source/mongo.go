package source

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/okian/quizrec/internal/domain/model"
)

// Default collection names in the upstream database.
const (
	defaultPlayersCollection      = "players"
	defaultQuestionsCollection    = "questions"
	defaultInteractionsCollection = "answered_questions"
)

// MongoSource reads the players, questions, and answered_questions
// collections from a MongoDB deployment. The answered_questions documents
// embed one array of answers per player; the aggregation pipeline unwinds
// them into flat interaction rows before they leave this adapter.
type MongoSource struct {
	db           *mongo.Database
	client       *mongo.Client
	players      string
	questions    string
	interactions string
}

// MongoOption applies a configuration option to the MongoSource.
type MongoOption func(*MongoSource)

// WithCollections overrides the default collection names.
func WithCollections(players, questions, interactions string) MongoOption {
	return func(s *MongoSource) {
		if players != "" {
			s.players = players
		}
		if questions != "" {
			s.questions = questions
		}
		if interactions != "" {
			s.interactions = interactions
		}
	}
}

// NewMongoSource connects to uri, pings the deployment, and returns a
// source over database.
func NewMongoSource(ctx context.Context, uri, database string, opts ...MongoOption) (*MongoSource, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	s := &MongoSource{
		db:           client.Database(database),
		client:       client,
		players:      defaultPlayersCollection,
		questions:    defaultQuestionsCollection,
		interactions: defaultInteractionsCollection,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close disconnects from the deployment.
func (s *MongoSource) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type playerDoc struct {
	ID    primitive.ObjectID `bson:"_id"`
	Major any                `bson:"major"`
	Rank  float64            `bson:"rank"`
}

type questionDoc struct {
	ID         primitive.ObjectID `bson:"_id"`
	Category   any                `bson:"category"`
	Difficulty float64            `bson:"difficulty"`
}

type interactionDoc struct {
	PlayerID   primitive.ObjectID `bson:"player_id"`
	QuestionID primitive.ObjectID `bson:"question_id"`
	Time       float64            `bson:"time"`
	Outcome    float64            `bson:"outcome"`
}

// Players returns all player attribute rows.
func (s *MongoSource) Players(ctx context.Context) ([]model.Player, error) {
	proj := options.Find().SetProjection(bson.D{
		{Key: "_id", Value: 1},
		{Key: "major", Value: 1},
		{Key: "rank", Value: 1},
	})
	cur, err := s.db.Collection(s.players).Find(ctx, bson.D{}, proj)
	if err != nil {
		return nil, fmt.Errorf("%w: players: %w", ErrQuery, err)
	}
	defer cur.Close(ctx)

	var out []model.Player
	for cur.Next(ctx) {
		var doc playerDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: players: %w", ErrDecode, err)
		}
		out = append(out, model.Player{
			ID:    doc.ID.Hex(),
			Major: toLabels(doc.Major),
			Rank:  doc.Rank,
		})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%w: players: %w", ErrQuery, err)
	}
	return out, nil
}

// Questions returns all question attribute rows.
func (s *MongoSource) Questions(ctx context.Context) ([]model.Question, error) {
	proj := options.Find().SetProjection(bson.D{
		{Key: "_id", Value: 1},
		{Key: "category", Value: 1},
		{Key: "difficulty", Value: 1},
	})
	cur, err := s.db.Collection(s.questions).Find(ctx, bson.D{}, proj)
	if err != nil {
		return nil, fmt.Errorf("%w: questions: %w", ErrQuery, err)
	}
	defer cur.Close(ctx)

	var out []model.Question
	for cur.Next(ctx) {
		var doc questionDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: questions: %w", ErrDecode, err)
		}
		out = append(out, model.Question{
			ID:         doc.ID.Hex(),
			Category:   toLabels(doc.Category),
			Difficulty: doc.Difficulty,
		})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%w: questions: %w", ErrQuery, err)
	}
	return out, nil
}

// Interactions unwinds the embedded answer arrays into flat rows.
func (s *MongoSource) Interactions(ctx context.Context) ([]model.Interaction, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$unwind", Value: "$questions"}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "player_id", Value: "$player"},
			{Key: "question_id", Value: "$questions._id"},
			{Key: "time", Value: "$questions.timeForAnswer"},
			{Key: "outcome", Value: "$questions.outcome"},
		}}},
	}
	cur, err := s.db.Collection(s.interactions).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("%w: interactions: %w", ErrQuery, err)
	}
	defer cur.Close(ctx)

	var out []model.Interaction
	for cur.Next(ctx) {
		var doc interactionDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: interactions: %w", ErrDecode, err)
		}
		out = append(out, model.Interaction{
			PlayerID:   doc.PlayerID.Hex(),
			QuestionID: doc.QuestionID.Hex(),
			Time:       doc.Time,
			Outcome:    doc.Outcome,
		})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%w: interactions: %w", ErrQuery, err)
	}
	return out, nil
}

// toLabels coerces a decoded BSON value into labels. Upstream documents
// store major as either a bare string or an array of strings.
func toLabels(v any) model.Labels {
	switch val := v.(type) {
	case string:
		return model.Labels{val}
	case []any:
		out := make(model.Labels, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case primitive.A:
		out := make(model.Labels, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
