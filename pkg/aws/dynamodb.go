package aws

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/younsl/bucketpulse/internal/models"
	"github.com/younsl/bucketpulse/pkg/store"
	"github.com/younsl/bucketpulse/pkg/utils"
)

// DynamoDBAPI is the subset of the DynamoDB client used by the stores
type DynamoDBAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// TableNames names the bp_* tables
type TableNames struct {
	Buckets             string
	PrefixConfig        string
	PrefixStatus        string
	PrefixEvaluations   string
	Alerts              string
	AlertsByBucketIndex string
}

// All returns every table name, for health checks
func (t TableNames) All() []string {
	return []string{t.Buckets, t.PrefixConfig, t.PrefixStatus, t.PrefixEvaluations, t.Alerts}
}

// DynamoStores bundles the DynamoDB-backed stores over one client
type DynamoStores struct {
	Configs     *DynamoConfigs
	Buckets     *DynamoBuckets
	Statuses    *DynamoStatuses
	Evaluations *DynamoEvaluations
	Alerts      *DynamoAlerts

	client DynamoDBAPI
	tables TableNames
}

// NewDynamoStores creates all stores from a loaded AWS config
func NewDynamoStores(cfg aws.Config, tables TableNames) *DynamoStores {
	return NewDynamoStoresWithClient(dynamodb.NewFromConfig(cfg), tables)
}

// NewDynamoStoresWithClient creates all stores over an existing client
func NewDynamoStoresWithClient(client DynamoDBAPI, tables TableNames) *DynamoStores {
	return &DynamoStores{
		Configs:     &DynamoConfigs{client: client, table: tables.PrefixConfig},
		Buckets:     &DynamoBuckets{client: client, table: tables.Buckets},
		Statuses:    &DynamoStatuses{client: client, table: tables.PrefixStatus},
		Evaluations: &DynamoEvaluations{client: client, table: tables.PrefixEvaluations},
		Alerts:      &DynamoAlerts{client: client, table: tables.Alerts, byBucketIndex: tables.AlertsByBucketIndex, now: time.Now},
		client:      client,
		tables:      tables,
	}
}

// CheckTables checks every table of this store set
func (s *DynamoStores) CheckTables(ctx context.Context) map[string]error {
	return CheckTables(ctx, s.client, s.tables)
}

// CheckTables describes every table and reports the ones that are missing or not ACTIVE
func CheckTables(ctx context.Context, client DynamoDBAPI, tables TableNames) map[string]error {
	results := make(map[string]error, 5)
	for _, name := range tables.All() {
		out, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
		switch {
		case err != nil:
			results[name] = err
		case out.Table == nil || out.Table.TableStatus != types.TableStatusActive:
			results[name] = fmt.Errorf("table %s is not active", name)
		default:
			results[name] = nil
		}
	}
	return results
}

func stringKey(kv ...string) (map[string]types.AttributeValue, error) {
	m := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i]] = kv[i+1]
	}
	return attributevalue.MarshalMap(m)
}

// encodeLastKey turns a LastEvaluatedKey into an opaque page token
func encodeLastKey(key map[string]types.AttributeValue) (string, error) {
	if len(key) == 0 {
		return "", nil
	}
	var m map[string]string
	if err := attributevalue.UnmarshalMap(key, &m); err != nil {
		return "", fmt.Errorf("encode page token: %w", err)
	}
	return store.EncodePageToken(m), nil
}

// decodePageToken turns a page token back into an ExclusiveStartKey
func decodePageToken(token string) (map[string]types.AttributeValue, error) {
	m, err := store.DecodePageToken(token)
	if err != nil || m == nil {
		return nil, err
	}
	key, err := attributevalue.MarshalMap(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidPageToken, err)
	}
	return key, nil
}

// DynamoConfigs reads bp_prefix_config (pk bucket_name, sk prefix)
type DynamoConfigs struct {
	client DynamoDBAPI
	table  string
}

func (d *DynamoConfigs) ListAll(ctx context.Context) ([]models.PrefixConfig, error) {
	var configs []models.PrefixConfig
	p := dynamodb.NewScanPaginator(d.client, &dynamodb.ScanInput{TableName: aws.String(d.table)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, store.ReadError(d.table, err)
		}
		var items []configItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, store.ReadError(d.table, err)
		}
		for _, it := range items {
			configs = append(configs, it.toModel())
		}
	}
	return configs, nil
}

func (d *DynamoConfigs) ListByBucket(ctx context.Context, bucketName string) ([]models.PrefixConfig, error) {
	items, err := queryAll[configItem](ctx, d.client, d.table, bucketName)
	if err != nil {
		return nil, err
	}
	configs := make([]models.PrefixConfig, 0, len(items))
	for _, it := range items {
		configs = append(configs, it.toModel())
	}
	return configs, nil
}

func (d *DynamoConfigs) Get(ctx context.Context, bucketName, prefix string) (*models.PrefixConfig, error) {
	var it configItem
	found, err := getItem(ctx, d.client, d.table, &it, "bucket_name", bucketName, "prefix", prefix)
	if err != nil || !found {
		return nil, err
	}
	cfg := it.toModel()
	return &cfg, nil
}

// DynamoBuckets reads bp_buckets (pk bucket_name)
type DynamoBuckets struct {
	client DynamoDBAPI
	table  string
}

func (d *DynamoBuckets) GetBucket(ctx context.Context, bucketName string) (*models.BucketInfo, error) {
	var it bucketItem
	found, err := getItem(ctx, d.client, d.table, &it, "bucket_name", bucketName)
	if err != nil || !found {
		return nil, err
	}
	b := it.toModel()
	return &b, nil
}

func (d *DynamoBuckets) ListBuckets(ctx context.Context) ([]models.BucketInfo, error) {
	var buckets []models.BucketInfo
	p := dynamodb.NewScanPaginator(d.client, &dynamodb.ScanInput{TableName: aws.String(d.table)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, store.ReadError(d.table, err)
		}
		var items []bucketItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, store.ReadError(d.table, err)
		}
		for _, it := range items {
			buckets = append(buckets, it.toModel())
		}
	}
	return buckets, nil
}

// DynamoStatuses reads and writes bp_prefix_status (pk bucket_name, sk prefix)
type DynamoStatuses struct {
	client DynamoDBAPI
	table  string
}

func (d *DynamoStatuses) Get(ctx context.Context, bucketName, prefix string) (*models.PrefixStatus, error) {
	var it statusItem
	found, err := getItem(ctx, d.client, d.table, &it, "bucket_name", bucketName, "prefix", prefix)
	if err != nil || !found {
		return nil, err
	}
	s := it.toModel()
	return &s, nil
}

func (d *DynamoStatuses) Save(ctx context.Context, status models.PrefixStatus) error {
	item, err := attributevalue.MarshalMap(newStatusItem(status))
	if err != nil {
		return store.WriteError(d.table, err)
	}
	if _, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(d.table), Item: item}); err != nil {
		return store.WriteError(d.table, err)
	}
	return nil
}

func (d *DynamoStatuses) Delete(ctx context.Context, bucketName, prefix string) error {
	return deleteItem(ctx, d.client, d.table, "bucket_name", bucketName, "prefix", prefix)
}

func (d *DynamoStatuses) ListByBucket(ctx context.Context, bucketName string) ([]models.PrefixStatus, error) {
	items, err := queryAll[statusItem](ctx, d.client, d.table, bucketName)
	if err != nil {
		return nil, err
	}
	statuses := make([]models.PrefixStatus, 0, len(items))
	for _, it := range items {
		statuses = append(statuses, it.toModel())
	}
	return statuses, nil
}

// DynamoEvaluations appends to bp_prefix_evaluations (pk bucket_prefix, sk evaluated_at)
type DynamoEvaluations struct {
	client DynamoDBAPI
	table  string
}

func (d *DynamoEvaluations) Save(ctx context.Context, evaluation models.PrefixEvaluation) error {
	item, err := marshalEvaluation(evaluation)
	if err != nil {
		return store.WriteError(d.table, err)
	}
	if _, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(d.table), Item: item}); err != nil {
		return store.WriteError(d.table, err)
	}
	return nil
}

func (d *DynamoEvaluations) Delete(ctx context.Context, bucketName, prefix string, evaluatedAt time.Time) error {
	return deleteItem(ctx, d.client, d.table,
		"bucket_prefix", evaluationKey(bucketName, prefix),
		"evaluated_at", utils.FormatISO(evaluatedAt))
}

// ListByPrefix queries newest first. Since compares against the fixed-width
// ISO sort key, so it is an inclusive lower bound.
func (d *DynamoEvaluations) ListByPrefix(ctx context.Context, bucketName, prefix string, q store.EvaluationQuery) (store.EvaluationPage, error) {
	startKey, err := decodePageToken(q.PageToken)
	if err != nil {
		return store.EvaluationPage{}, err
	}

	keyCond := "#pk = :pk"
	names := map[string]string{"#pk": "bucket_prefix"}
	values := map[string]types.AttributeValue{
		":pk": &types.AttributeValueMemberS{Value: evaluationKey(bucketName, prefix)},
	}
	if !q.Since.IsZero() {
		keyCond += " AND #sk >= :since"
		names["#sk"] = "evaluated_at"
		values[":since"] = &types.AttributeValueMemberS{Value: utils.FormatISO(q.Since)}
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(d.table),
		KeyConditionExpression:    aws.String(keyCond),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ScanIndexForward:          aws.Bool(false),
		ExclusiveStartKey:         startKey,
	}
	if q.Limit > 0 {
		input.Limit = aws.Int32(int32(q.Limit))
	}

	out, err := d.client.Query(ctx, input)
	if err != nil {
		return store.EvaluationPage{}, store.ReadError(d.table, err)
	}

	page := store.EvaluationPage{Items: make([]models.PrefixEvaluation, 0, len(out.Items))}
	for _, item := range out.Items {
		e, err := unmarshalEvaluation(item)
		if err != nil {
			return store.EvaluationPage{}, store.ReadError(d.table, err)
		}
		page.Items = append(page.Items, e)
	}
	if page.NextPageToken, err = encodeLastKey(out.LastEvaluatedKey); err != nil {
		return store.EvaluationPage{}, store.ReadError(d.table, err)
	}
	return page, nil
}

// DynamoAlerts appends to bp_alerts (pk alert_id, GSI byBucket on bucket_name + created_at)
type DynamoAlerts struct {
	client        DynamoDBAPI
	table         string
	byBucketIndex string
	now           func() time.Time
}

func (d *DynamoAlerts) Create(ctx context.Context, alert models.Alert) (models.Alert, error) {
	alert.AlertID = uuid.NewString()
	alert.CreatedAt = d.now().UTC().Truncate(time.Millisecond)

	item, err := attributevalue.MarshalMap(newAlertItem(alert))
	if err != nil {
		return models.Alert{}, store.WriteError(d.table, err)
	}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(alert_id)"),
	})
	if err != nil {
		return models.Alert{}, store.WriteError(d.table, err)
	}
	return alert, nil
}

// ListAlerts queries the byBucket index when a bucket is given and scans
// otherwise. Non-key filters are applied server side, so a page may hold fewer
// than Limit items while a page token is still returned.
func (d *DynamoAlerts) ListAlerts(ctx context.Context, filter models.AlertFilter) (store.AlertPage, error) {
	startKey, err := decodePageToken(filter.PageToken)
	if err != nil {
		return store.AlertPage{}, err
	}

	var (
		keyConds, filters []string
		names             = map[string]string{}
		values            = map[string]types.AttributeValue{}
	)
	add := func(conds *[]string, attr, op, placeholder, value string) {
		name := "#" + strings.TrimPrefix(placeholder, ":")
		names[name] = attr
		values[placeholder] = &types.AttributeValueMemberS{Value: value}
		*conds = append(*conds, fmt.Sprintf("%s %s %s", name, op, placeholder))
	}

	useIndex := filter.BucketName != "" && d.byBucketIndex != ""
	timeConds := &filters
	if useIndex {
		add(&keyConds, "bucket_name", "=", ":b", filter.BucketName)
		timeConds = &keyConds
	} else if filter.BucketName != "" {
		add(&filters, "bucket_name", "=", ":b", filter.BucketName)
	}
	switch {
	case !filter.Since.IsZero() && !filter.Until.IsZero():
		names["#created"] = "created_at"
		values[":since"] = &types.AttributeValueMemberS{Value: utils.FormatISO(filter.Since)}
		values[":until"] = &types.AttributeValueMemberS{Value: utils.FormatISO(filter.Until)}
		*timeConds = append(*timeConds, "#created BETWEEN :since AND :until")
	case !filter.Since.IsZero():
		add(timeConds, "created_at", ">=", ":created", utils.FormatISO(filter.Since))
	case !filter.Until.IsZero():
		add(timeConds, "created_at", "<=", ":created", utils.FormatISO(filter.Until))
	}
	if filter.Prefix != "" {
		add(&filters, "prefix", "=", ":p", filter.Prefix)
	}
	if filter.Severity != "" {
		add(&filters, "severity", "=", ":s", string(filter.Severity))
	}
	if filter.Type != "" {
		add(&filters, "type", "=", ":t", string(filter.Type))
	}

	var limit *int32
	if filter.Limit > 0 {
		limit = aws.Int32(int32(filter.Limit))
	}
	var filterExpr *string
	if len(filters) > 0 {
		filterExpr = aws.String(strings.Join(filters, " AND "))
	}
	if len(names) == 0 {
		names, values = nil, nil
	}

	var (
		items   []map[string]types.AttributeValue
		lastKey map[string]types.AttributeValue
	)
	if useIndex {
		out, err := d.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(d.table),
			IndexName:                 aws.String(d.byBucketIndex),
			KeyConditionExpression:    aws.String(strings.Join(keyConds, " AND ")),
			FilterExpression:          filterExpr,
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
			ScanIndexForward:          aws.Bool(false),
			Limit:                     limit,
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return store.AlertPage{}, store.ReadError(d.table, err)
		}
		items, lastKey = out.Items, out.LastEvaluatedKey
	} else {
		out, err := d.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 aws.String(d.table),
			FilterExpression:          filterExpr,
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
			Limit:                     limit,
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return store.AlertPage{}, store.ReadError(d.table, err)
		}
		items, lastKey = out.Items, out.LastEvaluatedKey
	}

	var decoded []alertItem
	if err := attributevalue.UnmarshalListOfMaps(items, &decoded); err != nil {
		return store.AlertPage{}, store.ReadError(d.table, err)
	}
	page := store.AlertPage{Items: make([]models.Alert, 0, len(decoded))}
	for _, it := range decoded {
		page.Items = append(page.Items, it.toModel())
	}
	if page.NextPageToken, err = encodeLastKey(lastKey); err != nil {
		return store.AlertPage{}, store.ReadError(d.table, err)
	}
	return page, nil
}

func (d *DynamoAlerts) MarkResolved(ctx context.Context, alertID string) error {
	key, err := stringKey("alert_id", alertID)
	if err != nil {
		return store.WriteError(d.table, err)
	}
	_, err = d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(d.table),
		Key:                       key,
		UpdateExpression:          aws.String("SET resolved = :r"),
		ConditionExpression:       aws.String("attribute_exists(alert_id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":r": &types.AttributeValueMemberBOOL{Value: true}},
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return fmt.Errorf("alert %s: %w", alertID, store.ErrNotFound)
		}
		return store.WriteError(d.table, err)
	}
	return nil
}

// getItem loads one item by string key attributes into out
func getItem(ctx context.Context, client DynamoDBAPI, table string, out any, kv ...string) (bool, error) {
	key, err := stringKey(kv...)
	if err != nil {
		return false, store.ReadError(table, err)
	}
	resp, err := client.GetItem(ctx, &dynamodb.GetItemInput{TableName: aws.String(table), Key: key})
	if err != nil {
		return false, store.ReadError(table, err)
	}
	if len(resp.Item) == 0 {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(resp.Item, out); err != nil {
		return false, store.ReadError(table, err)
	}
	return true, nil
}

// deleteItem removes one item by string key attributes
func deleteItem(ctx context.Context, client DynamoDBAPI, table string, kv ...string) error {
	key, err := stringKey(kv...)
	if err != nil {
		return store.WriteError(table, err)
	}
	if _, err := client.DeleteItem(ctx, &dynamodb.DeleteItemInput{TableName: aws.String(table), Key: key}); err != nil {
		return store.WriteError(table, err)
	}
	return nil
}

// queryAll reads every item of one bucket_name partition
func queryAll[T any](ctx context.Context, client DynamoDBAPI, table, bucketName string) ([]T, error) {
	var all []T
	p := dynamodb.NewQueryPaginator(client, &dynamodb.QueryInput{
		TableName:              aws.String(table),
		KeyConditionExpression: aws.String("bucket_name = :b"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":b": &types.AttributeValueMemberS{Value: bucketName},
		},
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, store.ReadError(table, err)
		}
		var items []T
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, store.ReadError(table, err)
		}
		all = append(all, items...)
	}
	return all, nil
}
