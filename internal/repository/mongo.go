package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"checkngo/internal/domain"
)

// Имена коллекций каталога в существующей базе
const (
	productsCollection = "productInfo"
	storesCollection   = "storesInfo"
)

// MongoStore каталог в MongoDB. Товары адресуются прикладным числовым id,
// а не _id документа.
type MongoStore struct {
	client   *mongo.Client
	products *mongo.Collection
	stores   *mongo.Collection
	now      func() time.Time
}

var _ Catalog = (*MongoStore)(nil)

// productDoc хранит цену как Decimal128, чтобы не терять копейки
type productDoc struct {
	ID          int64                `bson:"id"`
	Title       string               `bson:"title"`
	Description string               `bson:"description,omitempty"`
	Category    string               `bson:"category,omitempty"`
	Brand       string               `bson:"brand,omitempty"`
	SKU         string               `bson:"sku,omitempty"`
	Price       primitive.Decimal128 `bson:"price"`
	Stock       int64                `bson:"stock"`
	Thumbnail   string               `bson:"thumbnail,omitempty"`
	Tags        []string             `bson:"tags,omitempty"`
	CreatedAt   time.Time            `bson:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt"`
}

func toDoc(p *domain.Product) (productDoc, error) {
	price, err := primitive.ParseDecimal128(p.Price.String())
	if err != nil {
		return productDoc{}, fmt.Errorf("invalid price %s: %w", p.Price, err)
	}
	return productDoc{
		ID: p.ID, Title: p.Title, Description: p.Description, Category: p.Category,
		Brand: p.Brand, SKU: p.SKU, Price: price, Stock: p.Stock, Thumbnail: p.Thumbnail,
		Tags: p.Tags, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
	}, nil
}

func (d productDoc) toDomain() (*domain.Product, error) {
	price, err := decimal.NewFromString(d.Price.String())
	if err != nil {
		return nil, fmt.Errorf("invalid stored price %s: %w", d.Price, err)
	}
	return &domain.Product{
		ID: d.ID, Title: d.Title, Description: d.Description, Category: d.Category,
		Brand: d.Brand, SKU: d.SKU, Price: price, Stock: d.Stock, Thumbnail: d.Thumbnail,
		Tags: d.Tags, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}, nil
}

// ConnectMongo подключается к серверу и проверяет соединение
func ConnectMongo(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	db := client.Database(dbName)
	return &MongoStore{
		client:   client,
		products: db.Collection(productsCollection),
		stores:   db.Collection(storesCollection),
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// CreateIndexes уникальные индексы по прикладному id и имени магазина
func (m *MongoStore) CreateIndexes(ctx context.Context) error {
	_, err := m.products.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create product index: %w", err)
	}
	_, err = m.stores.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create store index: %w", err)
	}
	return nil
}

func (m *MongoStore) nextID(ctx context.Context) (int64, error) {
	var last productDoc
	opts := options.FindOne().SetSort(bson.D{{Key: "id", Value: -1}})
	err := m.products.FindOne(ctx, bson.M{}, opts).Decode(&last)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to allocate product id: %w", err)
	}
	return last.ID + 1, nil
}

func (m *MongoStore) Create(ctx context.Context, p *domain.Product) error {
	if p.Stock < 0 {
		return ErrInvalidStock
	}
	if p.ID == 0 {
		id, err := m.nextID(ctx)
		if err != nil {
			return err
		}
		p.ID = id
	}
	p.CreatedAt = m.now()
	p.UpdatedAt = p.CreatedAt
	doc, err := toDoc(p)
	if err != nil {
		return err
	}
	if _, err := m.products.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateID
		}
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (m *MongoStore) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	var doc productDoc
	err := m.products.FindOne(ctx, bson.M{"id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return doc.toDomain()
}

func (m *MongoStore) Update(ctx context.Context, p *domain.Product) error {
	if p.Stock < 0 {
		return ErrInvalidStock
	}
	p.UpdatedAt = m.now()
	doc, err := toDoc(p)
	if err != nil {
		return err
	}
	set := bson.M{
		"title": doc.Title, "description": doc.Description, "category": doc.Category,
		"brand": doc.Brand, "sku": doc.SKU, "price": doc.Price, "stock": doc.Stock,
		"thumbnail": doc.Thumbnail, "tags": doc.Tags, "updatedAt": doc.UpdatedAt,
	}
	res, err := m.products.UpdateOne(ctx, bson.M{"id": p.ID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoStore) findAndSetStock(ctx context.Context, filter bson.M, newStock int64) (*domain.Product, error) {
	update := bson.M{"$set": bson.M{"stock": newStock, "updatedAt": m.now()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc productDoc
	err := m.products.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err != nil {
		return nil, err
	}
	return doc.toDomain()
}

func (m *MongoStore) UpdateStock(ctx context.Context, id, expected, newStock int64) (*domain.Product, error) {
	if newStock < 0 {
		return nil, ErrInvalidStock
	}
	p, err := m.findAndSetStock(ctx, bson.M{"id": id, "stock": expected}, newStock)
	if errors.Is(err, mongo.ErrNoDocuments) {
		n, cerr := m.products.CountDocuments(ctx, bson.M{"id": id})
		if cerr != nil {
			return nil, fmt.Errorf("failed to check product: %w", cerr)
		}
		if n == 0 {
			return nil, ErrNotFound
		}
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update stock: %w", err)
	}
	return p, nil
}

func (m *MongoStore) SetStock(ctx context.Context, id, newStock int64) (*domain.Product, error) {
	if newStock < 0 {
		return nil, ErrInvalidStock
	}
	p, err := m.findAndSetStock(ctx, bson.M{"id": id}, newStock)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set stock: %w", err)
	}
	return p, nil
}

func (m *MongoStore) Delete(ctx context.Context, id int64) error {
	res, err := m.products.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoStore) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	filter := bson.M{}
	if f.TitleSubstring != "" {
		filter["title"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.TitleSubstring), Options: "i"}
	}
	cur, err := m.products.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]domain.Product, 0)
	for cur.Next(ctx) {
		var doc productDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode product: %w", err)
		}
		p, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		if matchesFilter(*p, f) {
			out = append(out, *p)
		}
	}
	return out, cur.Err()
}

// PutStore upsert магазина по id
func (m *MongoStore) PutStore(ctx context.Context, s domain.Store) error {
	_, err := m.stores.ReplaceOne(ctx, bson.M{"id": s.ID}, s, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert store: %w", err)
	}
	return nil
}

func (m *MongoStore) ListStores(ctx context.Context) ([]domain.Store, error) {
	cur, err := m.stores.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query stores: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]domain.Store, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode stores: %w", err)
	}
	return out, nil
}

func (m *MongoStore) GetStoreByName(ctx context.Context, name string) (*domain.Store, error) {
	pattern := "^" + regexp.QuoteMeta(NormalizeStoreName(name)) + "$"
	var s domain.Store
	err := m.stores.FindOne(ctx, bson.M{"name": primitive.Regex{Pattern: pattern, Options: "i"}}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get store: %w", err)
	}
	return &s, nil
}

func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
