package validators

import "go.mongodb.org/mongo-driver/bson"

var AuditLogValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"action", "entity", "entity_id", "acting_user", "timestamp"},
		"additionalProperties": true,

		"properties": bson.M{
			"action": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},
			"entity": bson.M{
				"bsonType": "string",
				"enum":     []string{"seat", "booking", "payment"},
			},
			"entity_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},
			"acting_user": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},
			"changes": bson.M{
				"bsonType": "object",
			},
			"timestamp": bson.M{
				"bsonType": "date",
			},
		},
	},
}

var SweepLockValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"owner", "expires_at"},
		"properties": bson.M{
			"owner": bson.M{
				"bsonType": "string",
			},
			"expires_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
