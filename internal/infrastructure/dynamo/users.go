package dynamo

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-accounts-api/internal/domain"
)

// UserRepo provides typed DynamoDB operations for the users table.
// The profiles table participates in the transactional create/delete paths so
// a user row never exists without its profile row and vice versa.
type UserRepo struct {
	client        *dynamodb.Client
	tableName     string
	profilesTable string
}

func NewUserRepo(client *dynamodb.Client, tableName, profilesTable string) *UserRepo {
	return &UserRepo{client: client, tableName: tableName, profilesTable: profilesTable}
}

// CreateWithProfile writes the user and its profile in one TransactWriteItems
// call. The condition on user_id guards against a ULID collision; the email
// uniqueness pre-check is the caller's job (email-index lookup).
func (r *UserRepo) CreateWithProfile(ctx context.Context, u *domain.User, p *domain.Profile) error {
	userItem, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	profileItem, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                userItem,
				ConditionExpression: aws.String("attribute_not_exists(user_id)"),
			}},
			{Put: &types.Put{
				TableName: aws.String(r.profilesTable),
				Item:      profileItem,
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("create user with profile: %w", err)
	}
	return nil
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("user_id", userID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.queryGSI(ctx, "email-index", "email", email)
}

func (r *UserRepo) GetByPlatformID(ctx context.Context, platformID string) (*domain.User, error) {
	return r.queryGSI(ctx, "platform_id-index", "platform_id", platformID)
}

func (r *UserRepo) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
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
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return err
}

// DeleteWithProfile removes the user and cascades to its profile in one
// transaction, matching the relational ON DELETE CASCADE the schema implies.
func (r *UserRepo) DeleteWithProfile(ctx context.Context, userID string) error {
	_, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Delete: &types.Delete{
				TableName:           aws.String(r.tableName),
				Key:                 strKey("user_id", userID),
				ConditionExpression: aws.String("attribute_exists(user_id)"),
			}},
			{Delete: &types.Delete{
				TableName: aws.String(r.profilesTable),
				Key:       strKey("user_id", userID),
			}},
		},
	})
	if isTransactionCanceled(err) {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return err
}

// ScanPage returns a page of active users.
// cursor is a base64-encoded user_id used as ExclusiveStartKey.
// Returns the items, a next cursor (empty string when no more pages), and any error.
func (r *UserRepo) ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.User, string, error) {
	input := &dynamodb.ScanInput{
		TableName:        aws.String(r.tableName),
		FilterExpression: aws.String("is_active = :t"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberBOOL{Value: true},
		},
		Limit: aws.Int32(limit),
	}
	if cursor != "" {
		userID, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", domain.ErrBadRequest)
		}
		input.ExclusiveStartKey = strKey("user_id", userID)
	}
	out, err := r.client.Scan(ctx, input)
	if err != nil {
		return nil, "", err
	}
	var users []domain.User
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &users); err != nil {
		return nil, "", err
	}
	nextCursor := ""
	if v, ok := out.LastEvaluatedKey["user_id"].(*types.AttributeValueMemberS); ok {
		nextCursor = encodeCursor(v.Value)
	}
	return users, nextCursor, nil
}

func encodeCursor(userID string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(userID))
}

func decodeCursor(cursor string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *UserRepo) queryGSI(ctx context.Context, index, attr, value string) (*domain.User, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: value}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Items[0], &u); err != nil {
		return nil, err
	}
	return &u, nil
}
