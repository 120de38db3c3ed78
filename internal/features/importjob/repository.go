package importjob

import (
	"context"
	"time"

	"go-ledger/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ImportJobRepository interface {
	Create(ctx context.Context, job *ImportJob) error
	Get(ctx context.Context, jobNumber int) (*ImportJob, error)
	Update(ctx context.Context, job *ImportJob) error
	UpdateStatus(ctx context.Context, jobNumber int, status ImportStatus) error
	UpdateProgress(ctx context.Context, jobNumber int, processed, successful, failed int, percentage float64) error
	ListRecent(ctx context.Context, limit int64) ([]ImportJob, error)
	InsertErrors(ctx context.Context, errs []ImportError) error
	FindErrors(ctx context.Context, jobNumber int) ([]ImportError, error)
}

type ImportJobRepositoryImpl struct {
	jobs     *mongo.Collection
	errors   *mongo.Collection
	counters *mongo.Collection
}

func NewImportJobRepository(db *database.MongodbDB) ImportJobRepository {
	return &ImportJobRepositoryImpl{
		jobs:     db.DB.Collection("import_jobs"),
		errors:   db.DB.Collection("import_errors"),
		counters: db.DB.Collection("counters"),
	}
}

// nextJobNumber allocates a monotonically increasing integer job id.
func (r *ImportJobRepositoryImpl) nextJobNumber(ctx context.Context) (int, error) {
	var counter struct {
		Seq int `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": "import_jobs"},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Seq, nil
}

func (r *ImportJobRepositoryImpl) Create(ctx context.Context, job *ImportJob) error {
	if job.ID.IsZero() {
		job.ID = primitive.NewObjectID()
	}
	seq, err := r.nextJobNumber(ctx)
	if err != nil {
		return err
	}
	job.JobNumber = seq
	job.Status = ImportStatusQueued
	job.CreatedAt = time.Now()
	job.UpdatedAt = time.Now()

	_, err = r.jobs.InsertOne(ctx, job)
	return err
}

func (r *ImportJobRepositoryImpl) Get(ctx context.Context, jobNumber int) (*ImportJob, error) {
	var job ImportJob
	err := r.jobs.FindOne(ctx, bson.M{"job_number": jobNumber}).Decode(&job)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *ImportJobRepositoryImpl) Update(ctx context.Context, job *ImportJob) error {
	job.UpdatedAt = time.Now()
	_, err := r.jobs.ReplaceOne(ctx, bson.M{"job_number": job.JobNumber}, job)
	return err
}

func (r *ImportJobRepositoryImpl) UpdateStatus(ctx context.Context, jobNumber int, status ImportStatus) error {
	set := bson.M{
		"status":     status,
		"updated_at": time.Now(),
	}
	if status.Terminal() {
		now := time.Now()
		set["completed_at"] = &now
	}

	_, err := r.jobs.UpdateOne(ctx, bson.M{"job_number": jobNumber}, bson.M{"$set": set})
	return err
}

func (r *ImportJobRepositoryImpl) UpdateProgress(ctx context.Context, jobNumber int, processed, successful, failed int, percentage float64) error {
	_, err := r.jobs.UpdateOne(ctx, bson.M{"job_number": jobNumber}, bson.M{
		"$set": bson.M{
			"processed_records":   processed,
			"successful_records":  successful,
			"failed_records":      failed,
			"percentage_complete": percentage,
			"updated_at":          time.Now(),
		},
	})
	return err
}

func (r *ImportJobRepositoryImpl) ListRecent(ctx context.Context, limit int64) ([]ImportJob, error) {
	opts := options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(limit)
	cursor, err := r.jobs.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var jobs []ImportJob
	if err = cursor.All(ctx, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *ImportJobRepositoryImpl) InsertErrors(ctx context.Context, errs []ImportError) error {
	if len(errs) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(errs))
	for i := range errs {
		if errs[i].ID.IsZero() {
			errs[i].ID = primitive.NewObjectID()
		}
		docs = append(docs, errs[i])
	}
	_, err := r.errors.InsertMany(ctx, docs)
	return err
}

func (r *ImportJobRepositoryImpl) FindErrors(ctx context.Context, jobNumber int) ([]ImportError, error) {
	opts := options.Find().SetSort(bson.M{"row_number": 1})
	cursor, err := r.errors.Find(ctx, bson.M{"job_number": jobNumber}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var errs []ImportError
	if err = cursor.All(ctx, &errs); err != nil {
		return nil, err
	}
	return errs, nil
}
