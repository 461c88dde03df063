package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/facilityhub/dept-chat/internal/models"
)

const employeesCollection = "employees"

// EmployeeDirectory is a read-only view over the host application's
// employee records. The chat service only enumerates members for
// department auto-enrollment and denormalizes display fields; employee
// lifecycle is owned elsewhere.
type EmployeeDirectory interface {
	ListActiveByDepartment(ctx context.Context, department string) ([]*models.Employee, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Employee, error)
}

type employeeDirectory struct {
	collection *mongo.Collection
}

func NewEmployeeDirectory(db *DB) EmployeeDirectory {
	return &employeeDirectory{
		collection: db.Database.Collection(employeesCollection),
	}
}

func (r *employeeDirectory) ListActiveByDepartment(ctx context.Context, department string) ([]*models.Employee, error) {
	filter := bson.M{
		"department": department,
		"is_active":  true,
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	var employees []*models.Employee
	if err := cursor.All(ctx, &employees); err != nil {
		return nil, fmt.Errorf("decode employees: %w", err)
	}
	return employees, nil
}

func (r *employeeDirectory) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Employee, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("get employees by ids: %w", err)
	}
	var employees []*models.Employee
	if err := cursor.All(ctx, &employees); err != nil {
		return nil, fmt.Errorf("decode employees: %w", err)
	}
	return employees, nil
}
