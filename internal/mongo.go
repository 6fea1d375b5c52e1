package internal

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"evcs/internal/config"
	"evcs/models"
)

const (
	collectionLog            = "sys_log"
	collectionUserTags       = "user_tags"
	collectionChargePoints   = "charge_points"
	collectionConnectors     = "connectors"
	collectionTransactions   = "transactions"
	collectionMeterSamples   = "meter_samples"
	collectionStatusHistory  = "status_history"
	collectionTariffs        = "tariffs"
	collectionConsumptions   = "consumptions"
	collectionAuthorizations = "authorizations"
	collectionSubscriptions  = "subscriptions"
)

type MongoDB struct {
	ctx           context.Context
	clientOptions *options.ClientOptions
	database      string
}

func NewMongoClient(conf *config.Config) (*MongoDB, error) {
	if !conf.Mongo.Enabled {
		return nil, nil
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	client := &MongoDB{
		ctx:           context.Background(),
		clientOptions: clientOptions,
		database:      conf.Mongo.Database,
	}
	return client, nil
}

func (m *MongoDB) connect() (*mongo.Client, error) {
	connection, err := mongo.Connect(m.ctx, m.clientOptions)
	if err != nil {
		return nil, err
	}
	return connection, nil
}

func (m *MongoDB) disconnect(connection *mongo.Client) {
	err := connection.Disconnect(m.ctx)
	if err != nil {
		log.Println("mongodb disconnect error;", err)
	}
}

func (m *MongoDB) insert(table string, document interface{}) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)
	collection := connection.Database(m.database).Collection(table)
	_, err = collection.InsertOne(m.ctx, document)
	return err
}

func (m *MongoDB) WriteLogMessage(data Data) error {
	return m.insert(collectionLog, data)
}

func (m *MongoDB) ReadLog() (interface{}, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	var logMessages []FeatureLogMessage
	collection := connection.Database(m.database).Collection(collectionLog)
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(1000)
	cursor, err := collection.Find(m.ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	if err = cursor.All(m.ctx, &logMessages); err != nil {
		return nil, err
	}
	return logMessages, nil
}

func (m *MongoDB) GetChargePoint(id string) (*models.ChargePoint, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	filter := bson.D{{Key: "charge_point_id", Value: id}}
	collection := connection.Database(m.database).Collection(collectionChargePoints)
	var chargePoint models.ChargePoint
	err = collection.FindOne(m.ctx, filter).Decode(&chargePoint)
	if err != nil {
		return nil, err
	}
	return &chargePoint, nil
}

func (m *MongoDB) GetChargePoints() ([]models.ChargePoint, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	var chargePoints []models.ChargePoint
	collection := connection.Database(m.database).Collection(collectionChargePoints)
	cursor, err := collection.Find(m.ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	if err = cursor.All(m.ctx, &chargePoints); err != nil {
		return nil, err
	}
	return chargePoints, nil
}

func (m *MongoDB) AddChargePoint(chargePoint *models.ChargePoint) error {
	existed, _ := m.GetChargePoint(chargePoint.Id)
	if existed != nil {
		return fmt.Errorf("charge point with id %s already exists", chargePoint.Id)
	}
	return m.insert(collectionChargePoints, chargePoint)
}

func (m *MongoDB) UpdateChargePoint(chargePoint *models.ChargePoint) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	filter := bson.D{{Key: "charge_point_id", Value: chargePoint.Id}}
	update := bson.M{"$set": chargePoint}
	collection := connection.Database(m.database).Collection(collectionChargePoints)
	_, err = collection.UpdateOne(m.ctx, filter, update)
	return err
}

func (m *MongoDB) GetConnector(id int, chargePointId string) (*models.Connector, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	filter := bson.D{{Key: "connector_id", Value: id}, {Key: "charge_point_id", Value: chargePointId}}
	collection := connection.Database(m.database).Collection(collectionConnectors)
	var connector models.Connector
	err = collection.FindOne(m.ctx, filter).Decode(&connector)
	if err != nil {
		return nil, err
	}
	connector.Init()
	return &connector, nil
}

func (m *MongoDB) GetConnectors(chargePointId string) ([]*models.Connector, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	filter := bson.D{}
	if chargePointId != "" {
		filter = bson.D{{Key: "charge_point_id", Value: chargePointId}}
	}
	var connectors []*models.Connector
	collection := connection.Database(m.database).Collection(collectionConnectors)
	cursor, err := collection.Find(m.ctx, filter)
	if err != nil {
		return nil, err
	}
	if err = cursor.All(m.ctx, &connectors); err != nil {
		return nil, err
	}
	for _, c := range connectors {
		c.Init()
	}
	return connectors, nil
}

func (m *MongoDB) AddConnector(connector *models.Connector) error {
	existed, _ := m.GetConnector(connector.Id, connector.ChargePointId)
	if existed != nil {
		return fmt.Errorf("connector with id %v@%s already exists", existed.Id, existed.ChargePointId)
	}
	return m.insert(collectionConnectors, connector)
}

func (m *MongoDB) UpdateConnector(connector *models.Connector) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	filter := bson.D{{Key: "connector_id", Value: connector.Id}, {Key: "charge_point_id", Value: connector.ChargePointId}}
	update := bson.M{"$set": connector}
	collection := connection.Database(m.database).Collection(collectionConnectors)
	_, err = collection.UpdateOne(m.ctx, filter, update)
	return err
}

func (m *MongoDB) GetUserTag(id string) (*models.UserTag, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	filter := bson.D{{Key: "id_tag", Value: id}}
	collection := connection.Database(m.database).Collection(collectionUserTags)
	var userTag models.UserTag
	err = collection.FindOne(m.ctx, filter).Decode(&userTag)
	if err != nil {
		return nil, err
	}
	return &userTag, nil
}

func (m *MongoDB) AddUserTag(userTag *models.UserTag) error {
	existed, _ := m.GetUserTag(userTag.IdTag)
	if existed != nil {
		return fmt.Errorf("ID tag %s is already registered", existed.IdTag)
	}
	return m.insert(collectionUserTags, userTag)
}

func (m *MongoDB) UpdateUserTag(userTag *models.UserTag) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	filter := bson.D{{Key: "id_tag", Value: userTag.IdTag}}
	update := bson.M{"$set": userTag}
	collection := connection.Database(m.database).Collection(collectionUserTags)
	_, err = collection.UpdateOne(m.ctx, filter, update)
	return err
}

func (m *MongoDB) GetTransaction(id int) (*models.Transaction, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	filter := bson.D{{Key: "transaction_id", Value: id}}
	collection := connection.Database(m.database).Collection(collectionTransactions)
	var transaction models.Transaction
	err = collection.FindOne(m.ctx, filter).Decode(&transaction)
	if err != nil {
		return nil, err
	}
	transaction.Init()
	return &transaction, nil
}

func (m *MongoDB) GetLastTransaction() (*models.Transaction, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionTransactions)
	opts := options.FindOne().SetSort(bson.D{{Key: "transaction_id", Value: -1}})
	var transaction models.Transaction
	err = collection.FindOne(m.ctx, bson.D{}, opts).Decode(&transaction)
	if err != nil {
		return nil, err
	}
	transaction.Init()
	return &transaction, nil
}

func (m *MongoDB) GetActiveTransaction(chargePointId string, connectorId int) (*models.Transaction, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	filter := bson.D{
		{Key: "charge_point_id", Value: chargePointId},
		{Key: "connector_id", Value: connectorId},
		{Key: "status", Value: models.TransactionStatusActive},
	}
	collection := connection.Database(m.database).Collection(collectionTransactions)
	opts := options.FindOne().SetSort(bson.D{{Key: "time_started", Value: -1}})
	var transaction models.Transaction
	err = collection.FindOne(m.ctx, filter, opts).Decode(&transaction)
	if err != nil {
		return nil, err
	}
	transaction.Init()
	return &transaction, nil
}

func (m *MongoDB) CountTransactions(chargePointId string) (int64, error) {
	connection, err := m.connect()
	if err != nil {
		return 0, err
	}
	defer m.disconnect(connection)

	filter := bson.D{{Key: "charge_point_id", Value: chargePointId}}
	collection := connection.Database(m.database).Collection(collectionTransactions)
	return collection.CountDocuments(m.ctx, filter)
}

func (m *MongoDB) AddTransaction(transaction *models.Transaction) error {
	return m.insert(collectionTransactions, transaction)
}

func (m *MongoDB) UpdateTransaction(transaction *models.Transaction) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	filter := bson.D{{Key: "transaction_id", Value: transaction.Id}}
	update := bson.M{"$set": transaction}
	collection := connection.Database(m.database).Collection(collectionTransactions)
	_, err = collection.UpdateOne(m.ctx, filter, update)
	return err
}

func (m *MongoDB) AddMeterSample(sample *models.MeterSample) error {
	return m.insert(collectionMeterSamples, sample)
}

func (m *MongoDB) GetMeterSamples(transactionId int) ([]models.MeterSample, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	filter := bson.D{{Key: "transaction_id", Value: transactionId}}
	collection := connection.Database(m.database).Collection(collectionMeterSamples)
	opts := options.Find().SetSort(bson.D{{Key: "time", Value: 1}})
	cursor, err := collection.Find(m.ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var samples []models.MeterSample
	if err = cursor.All(m.ctx, &samples); err != nil {
		return nil, err
	}
	return samples, nil
}

func (m *MongoDB) AddStatusHistory(status *models.StatusHistory) error {
	return m.insert(collectionStatusHistory, status)
}

func (m *MongoDB) GetStatusHistory(chargePointId string, from time.Time) ([]models.StatusHistory, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	filter := bson.D{
		{Key: "charge_point_id", Value: chargePointId},
		{Key: "time", Value: bson.D{{Key: "$gte", Value: from}}},
	}
	collection := connection.Database(m.database).Collection(collectionStatusHistory)
	opts := options.Find().SetSort(bson.D{{Key: "time", Value: 1}})
	cursor, err := collection.Find(m.ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var history []models.StatusHistory
	if err = cursor.All(m.ctx, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (m *MongoDB) GetTariff(id string) (*models.Tariff, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	filter := bson.D{{Key: "tariff_id", Value: id}}
	collection := connection.Database(m.database).Collection(collectionTariffs)
	var tariff models.Tariff
	err = collection.FindOne(m.ctx, filter).Decode(&tariff)
	if err != nil {
		return nil, err
	}
	return &tariff, nil
}

// GetTariffs returns active tariff candidates for a charge point connector,
// most recently valid first. Tariffs bound to no charge point apply to all.
func (m *MongoDB) GetTariffs(chargePointId string, connectorId int) ([]models.Tariff, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	filter := bson.D{
		{Key: "is_active", Value: true},
		{Key: "$and", Value: bson.A{
			bson.D{{Key: "$or", Value: bson.A{
				bson.D{{Key: "charge_point_id", Value: chargePointId}},
				bson.D{{Key: "charge_point_id", Value: ""}},
				bson.D{{Key: "charge_point_id", Value: bson.D{{Key: "$exists", Value: false}}}},
			}}},
			bson.D{{Key: "$or", Value: bson.A{
				bson.D{{Key: "connector_id", Value: connectorId}},
				bson.D{{Key: "connector_id", Value: bson.D{{Key: "$exists", Value: false}}}},
			}}},
		}},
	}
	collection := connection.Database(m.database).Collection(collectionTariffs)
	opts := options.Find().SetSort(bson.D{{Key: "valid_from", Value: -1}, {Key: "created_at", Value: -1}})
	cursor, err := collection.Find(m.ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var tariffs []models.Tariff
	if err = cursor.All(m.ctx, &tariffs); err != nil {
		return nil, err
	}
	return tariffs, nil
}

func (m *MongoDB) AddTariff(tariff *models.Tariff) error {
	existed, _ := m.GetTariff(tariff.Id)
	if existed != nil {
		return fmt.Errorf("tariff with id %s already exists", tariff.Id)
	}
	return m.insert(collectionTariffs, tariff)
}

func (m *MongoDB) UpdateTariff(tariff *models.Tariff) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	filter := bson.D{{Key: "tariff_id", Value: tariff.Id}}
	update := bson.M{"$set": tariff}
	collection := connection.Database(m.database).Collection(collectionTariffs)
	_, err = collection.UpdateOne(m.ctx, filter, update)
	return err
}

func (m *MongoDB) GetConsumption(transactionId int) (*models.Consumption, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	filter := bson.D{{Key: "transaction_id", Value: transactionId}}
	collection := connection.Database(m.database).Collection(collectionConsumptions)
	var consumption models.Consumption
	err = collection.FindOne(m.ctx, filter).Decode(&consumption)
	if err != nil {
		return nil, err
	}
	return &consumption, nil
}

func (m *MongoDB) AddConsumption(consumption *models.Consumption) error {
	return m.insert(collectionConsumptions, consumption)
}

func (m *MongoDB) GetConsumptionTotals(from, to time.Time) (*models.ConsumptionTotals, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionConsumptions)
	pipeline := bson.A{
		bson.D{{Key: "$match", Value: bson.D{{Key: "time_stop", Value: bson.D{{Key: "$gte", Value: from}, {Key: "$lt", Value: to}}}}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "transactions", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "energy_consumed", Value: bson.D{{Key: "$sum", Value: "$energy_consumed"}}},
			{Key: "total_cost", Value: bson.D{{Key: "$sum", Value: "$total_cost"}}},
		}}},
	}
	cursor, err := collection.Aggregate(m.ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate consumptions: %v", err)
	}
	var totals []models.ConsumptionTotals
	if err = cursor.All(m.ctx, &totals); err != nil {
		return nil, fmt.Errorf("decode consumption totals: %v", err)
	}
	if len(totals) == 0 {
		return &models.ConsumptionTotals{}, nil
	}
	return &totals[0], nil
}

func (m *MongoDB) AddAuthorizationRecord(record *models.AuthorizationRecord) error {
	return m.insert(collectionAuthorizations, record)
}

func (m *MongoDB) GetSubscriptions() ([]models.UserSubscription, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionSubscriptions)
	cursor, err := collection.Find(m.ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	var subscriptions []models.UserSubscription
	if err = cursor.All(m.ctx, &subscriptions); err != nil {
		return nil, err
	}
	return subscriptions, nil
}

func (m *MongoDB) GetSubscription(id int) (*models.UserSubscription, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	filter := bson.D{{Key: "user_id", Value: id}}
	collection := connection.Database(m.database).Collection(collectionSubscriptions)
	var subscription models.UserSubscription
	err = collection.FindOne(m.ctx, filter).Decode(&subscription)
	if err != nil {
		return nil, err
	}
	return &subscription, nil
}

func (m *MongoDB) AddSubscription(subscription *models.UserSubscription) error {
	existed, _ := m.GetSubscription(subscription.UserID)
	if existed != nil {
		return fmt.Errorf("user is already subscribed")
	}
	return m.insert(collectionSubscriptions, subscription)
}

func (m *MongoDB) DeleteSubscription(subscription *models.UserSubscription) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	filter := bson.D{{Key: "user_id", Value: subscription.UserID}}
	collection := connection.Database(m.database).Collection(collectionSubscriptions)
	_, err = collection.DeleteOne(m.ctx, filter)
	return err
}
