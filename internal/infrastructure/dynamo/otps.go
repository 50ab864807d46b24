package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-accounts-api/internal/domain"
)

// OTPRepo is the append-only one-time-code ledger.
// PK: email, SK: otp_id (ULID). The ULID sort key orders rows by creation time
// with insertion order breaking ties, so "latest unused" is a single
// descending query. Rows are never deleted by the application; issuing a new
// code does not touch earlier ones. The users table name is held so the
// consume path can span both tables in one transaction.
type OTPRepo struct {
	client     *dynamodb.Client
	tableName  string
	usersTable string
}

func NewOTPRepo(client *dynamodb.Client, tableName, usersTable string) *OTPRepo {
	return &OTPRepo{client: client, tableName: tableName, usersTable: usersTable}
}

func (r *OTPRepo) Put(ctx context.Context, c *domain.OneTimeCode) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal one-time code: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// LatestUnused returns the most recently created unused row for the email,
// or ErrNotFound when every row is consumed (or none exists).
func (r *OTPRepo) LatestUnused(ctx context.Context, email string) (*domain.OneTimeCode, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("email = :e"),
		FilterExpression:       aws.String("#u = :f"),
		ExpressionAttributeNames: map[string]string{
			"#u": fieldUsed,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":e": &types.AttributeValueMemberS{Value: email},
			":f": &types.AttributeValueMemberBOOL{Value: false},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("no outstanding code: %w", domain.ErrNotFound)
	}
	var c domain.OneTimeCode
	if err := attributevalue.UnmarshalMap(out.Items[0], &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// MarkUsed flips the used flag. Idempotent: marking an already-used row is not
// an error.
func (r *OTPRepo) MarkUsed(ctx context.Context, email, otpID string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.tableName),
		Key:              compositeKey("email", email, "otp_id", otpID),
		UpdateExpression: aws.String("SET #u = :t"),
		ExpressionAttributeNames: map[string]string{
			"#u": fieldUsed,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberBOOL{Value: true},
		},
		ConditionExpression: aws.String("attribute_exists(otp_id)"),
	})
	if isConditionalCheckFailed(err) {
		return fmt.Errorf("code not found: %w", domain.ErrNotFound)
	}
	return err
}

// ConsumeAndApply marks the code used and applies the caller's user mutation
// in a single TransactWriteItems call, so the mark-used and the effect commit
// or roll back together. The used=false condition serializes racing consumers:
// the loser's transaction cancels and surfaces as ErrNotFound.
func (r *OTPRepo) ConsumeAndApply(ctx context.Context, email, otpID, userID string, effect map[string]interface{}) error {
	ue, err := buildUpdateExpr(effect)
	if err != nil {
		return err
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Update: &types.Update{
				TableName:        aws.String(r.tableName),
				Key:              compositeKey("email", email, "otp_id", otpID),
				UpdateExpression: aws.String("SET #u = :t"),
				ExpressionAttributeNames: map[string]string{
					"#u": fieldUsed,
				},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":t": &types.AttributeValueMemberBOOL{Value: true},
					":f": &types.AttributeValueMemberBOOL{Value: false},
				},
				ConditionExpression: aws.String("attribute_exists(otp_id) AND #u = :f"),
			}},
			{Update: &types.Update{
				TableName:                 aws.String(r.usersTable),
				Key:                       strKey("user_id", userID),
				UpdateExpression:          aws.String(ue.Expr),
				ExpressionAttributeNames:  ue.Names,
				ExpressionAttributeValues: ue.Values,
				ConditionExpression:       aws.String("attribute_exists(user_id)"),
			}},
		},
	})
	if isTransactionCanceled(err) {
		return fmt.Errorf("code already consumed: %w", domain.ErrNotFound)
	}
	return err
}
