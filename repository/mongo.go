package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"salon-booking-backend/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	bookingsCollection     = "bookings"
	reminderLogsCollection = "reminder_logs"
	adminUsersCollection   = "admin_users"

	// casAttempts bounds the compare-and-set loop in ApplyPayment.
	casAttempts = 5
)

type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	return &MongoStore{client: client, db: client.Database(database)}
}

func (s *MongoStore) Bookings() BookingRepository {
	return &mongoBookings{coll: s.db.Collection(bookingsCollection)}
}

func (s *MongoStore) ReminderLogs() ReminderLogRepository {
	return &mongoReminderLogs{coll: s.db.Collection(reminderLogsCollection)}
}

func (s *MongoStore) Admins() AdminRepository {
	return &mongoAdmins{coll: s.db.Collection(adminUsersCollection)}
}

func (s *MongoStore) Migrate(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		bookingsCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "reminderSent", Value: 1}, {Key: "reminderAt", Value: 1}}},
			{Keys: bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}}},
		},
		reminderLogsCollection: {
			{Keys: bson.D{{Key: "bookingId", Value: 1}}},
		},
		adminUsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for coll, idx := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", coll, err)
		}
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func mongoNotFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

type mongoBookings struct {
	coll *mongo.Collection
}

func (r *mongoBookings) Create(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	_, err := r.coll.InsertOne(ctx, booking)
	return err
}

func (r *mongoBookings) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&booking); err != nil {
		return nil, mongoNotFound(err)
	}
	return &booking, nil
}

func (r *mongoBookings) List(ctx context.Context) ([]models.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}})
	return r.find(ctx, bson.M{}, opts)
}

func (r *mongoBookings) find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Booking, error) {
	cursor, err := r.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	bookings := []models.Booking{}
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *mongoBookings) SetPaymentReference(ctx context.Context, id, reference string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"paymentReference": reference, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyPayment uses the payment fields it read as the precondition of the
// update, retrying when another writer got there first.
func (r *mongoBookings) ApplyPayment(ctx context.Context, id string, payment models.Payment) (*models.Booking, bool, error) {
	for attempt := 0; attempt < casAttempts; attempt++ {
		booking, err := r.FindByID(ctx, id)
		if err != nil {
			return nil, false, err
		}

		filter := bson.M{
			"_id":           id,
			"paymentStatus": booking.PaymentStatus,
			"depositPaid":   booking.DepositPaid,
		}
		if !booking.ApplyPayment(payment) {
			return booking, false, nil
		}
		booking.UpdatedAt = time.Now().UTC()

		res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M{
			"paymentStatus":    booking.PaymentStatus,
			"depositPaid":      booking.DepositPaid,
			"balanceRemaining": booking.BalanceRemaining,
			"paymentReference": booking.PaymentReference,
			"status":           booking.Status,
			"updatedAt":        booking.UpdatedAt,
		}})
		if err != nil {
			return nil, false, err
		}
		if res.MatchedCount == 1 {
			return booking, true, nil
		}
	}
	return nil, false, ErrConflict
}

func (r *mongoBookings) FindDueReminders(ctx context.Context, now time.Time, limit int) ([]models.Booking, error) {
	filter := bson.M{
		"status":       models.StatusAccepted,
		"reminderSent": false,
		"reminderAt":   bson.M{"$lte": now},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "reminderAt", Value: 1}}).
		SetLimit(int64(limit))
	return r.find(ctx, filter, opts)
}

func (r *mongoBookings) ClaimReminder(ctx context.Context, id string) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "reminderSent": false},
		bson.M{"$set": bson.M{"reminderSent": true, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *mongoBookings) ReleaseReminder(ctx context.Context, id string) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"reminderSent": false, "updatedAt": time.Now().UTC()}},
	)
	return err
}

func (r *mongoBookings) ApplyFormatFixes(ctx context.Context, fixes []models.FormatFix) (int, error) {
	if len(fixes) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	writes := make([]mongo.WriteModel, 0, len(fixes))
	for _, fix := range fixes {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": fix.BookingID}).
			SetUpdate(bson.M{"$set": bson.M{
				"date":       fix.Date,
				"time":       fix.Time,
				"reminderAt": fix.ReminderAt,
				"updatedAt":  now,
			}}))
	}

	res, err := r.coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, fmt.Errorf("bulk write: %w", err)
	}
	return int(res.ModifiedCount), nil
}

type mongoReminderLogs struct {
	coll *mongo.Collection
}

func (r *mongoReminderLogs) Create(ctx context.Context, log *models.ReminderLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	_, err := r.coll.InsertOne(ctx, log)
	return err
}

func (r *mongoReminderLogs) ListByBooking(ctx context.Context, bookingID string) ([]models.ReminderLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sentAt", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{"bookingId": bookingID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	logs := []models.ReminderLog{}
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

type mongoAdmins struct {
	coll *mongo.Collection
}

func (r *mongoAdmins) Create(ctx context.Context, user *models.AdminUser) error {
	if err := user.Prepare(); err != nil {
		return err
	}
	user.Email = strings.ToLower(user.Email)
	_, err := r.coll.InsertOne(ctx, user)
	return err
}

func (r *mongoAdmins) Update(ctx context.Context, user *models.AdminUser) error {
	if err := user.Prepare(); err != nil {
		return err
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": bson.M{
		"name":     user.Name,
		"password": user.Password,
		"isAdmin":  user.IsAdmin,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoAdmins) FindByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	var user models.AdminUser
	if err := r.coll.FindOne(ctx, bson.M{"email": strings.ToLower(email)}).Decode(&user); err != nil {
		return nil, mongoNotFound(err)
	}
	return &user, nil
}

func (r *mongoAdmins) TouchLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"lastLogin": at}})
	return err
}
