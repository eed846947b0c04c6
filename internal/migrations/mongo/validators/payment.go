package validators

import "go.mongodb.org/mongo-driver/bson"

var PaymentValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"booking_id",
			"amount",
			"currency",
			"method",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"booking_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"amount": bson.M{
				"bsonType": []string{"long", "int"},
				"minimum":  0,
			},

			"currency": bson.M{
				"bsonType": "string",
				"pattern":  "^[A-Z]{3}$",
			},

			"method": bson.M{
				"bsonType": "string",
				"enum":     []string{"card", "paypal", "bank_transfer"},
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"paid",
					"failed",
					"refunded",
				},
			},

			"transaction_id": bson.M{
				"bsonType":  "string",
				"maxLength": 128,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
