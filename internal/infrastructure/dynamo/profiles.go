package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-accounts-api/internal/domain"
)

// ProfileRepo provides typed DynamoDB operations for the profiles table.
// Creation and deletion happen through UserRepo's transactional paths.
type ProfileRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewProfileRepo(client *dynamodb.Client, tableName string) *ProfileRepo {
	return &ProfileRepo{client: client, tableName: tableName}
}

func (r *ProfileRepo) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("user_id", userID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("profile not found: %w", domain.ErrNotFound)
	}
	var p domain.Profile
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepo) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("user_id", userID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ConditionExpression:       aws.String("attribute_exists(user_id)"),
	})
	if isConditionalCheckFailed(err) {
		return fmt.Errorf("profile not found: %w", domain.ErrNotFound)
	}
	return err
}
