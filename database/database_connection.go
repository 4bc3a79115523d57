package database

import (
	"context"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

var (
	dbClient *mongo.Client
	connect  sync.Once
)

func Connect() *mongo.Client {
	connect.Do(func() {
		serverAPI := options.ServerAPI(options.ServerAPIVersion1)
		uri := os.Getenv("MONGODB_URI")
		opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)
		client, err := mongo.Connect(opts)
		if err != nil {
			log.Fatal().Err(err).Msg("mongodb connect")
		}
		if err := client.Ping(context.TODO(), readpref.Primary()); err != nil {
			log.Fatal().Err(err).Msg("mongodb ping")
		}
		log.Info().Msg("connected to MongoDB")
		dbClient = client
	})
	return dbClient
}

func OpenCollection(collectionName string) *mongo.Collection {
	client := Connect()
	databaseName := os.Getenv("DATABASE_NAME")
	return client.Database(databaseName).Collection(collectionName)
}

// EnsureIndexes creates the unique indexes registration relies on to map
// duplicate usernames and emails to conflict errors.
func EnsureIndexes(ctx context.Context) error {
	usersCol := OpenCollection("users")
	_, err := usersCol.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	return err
}
