package validators

import "go.mongodb.org/mongo-driver/bson"

var passengerSchema = bson.M{
	"bsonType": "object",
	"required": []string{"first_name", "last_name", "date_of_birth", "gender", "seat"},
	"properties": bson.M{
		"first_name": bson.M{
			"bsonType":  "string",
			"minLength": 1,
			"maxLength": 60,
		},
		"last_name": bson.M{
			"bsonType":  "string",
			"minLength": 1,
			"maxLength": 60,
		},
		"date_of_birth": bson.M{
			"bsonType": "string",
			"pattern":  `^\d{4}-\d{2}-\d{2}$`,
		},
		"gender": bson.M{
			"bsonType": "string",
			"enum":     []string{"male", "female", "other"},
		},
		"seat": seatSnapshotSchema,
	},
}

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"reference",
			"user_id",
			"flight_id",
			"passengers",
			"total_amount",
			"currency",
			"status",
			"contact_email",
			"hold_id",
			"hold_expires_at",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"reference": bson.M{
				"bsonType": "string",
				"pattern":  "^[A-HJ-NP-Z2-9]{6}$",
			},

			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"flight_id": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 32,
			},

			"passengers": bson.M{
				"bsonType": "array",
				"minItems": 1,
				"maxItems": 9,
				"items":    passengerSchema,
			},

			"total_amount": bson.M{
				"bsonType": []string{"long", "int"},
				"minimum":  0,
			},

			"currency": bson.M{
				"bsonType": "string",
				"pattern":  "^[A-Z]{3}$",
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"confirmed",
					"cancelled",
					"completed",
				},
			},

			"contact_email": bson.M{
				"bsonType":  "string",
				"maxLength": 254,
			},

			"contact_phone": bson.M{
				"bsonType": "string",
				"pattern":  `^\+[1-9]\d{6,14}$`,
			},

			"hold_id": bson.M{
				"bsonType": "string",
			},

			"hold_expires_at": bson.M{
				"bsonType": "date",
			},

			"cancel_reason": bson.M{
				"bsonType":  "string",
				"maxLength": 200,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
