package validators

import "go.mongodb.org/mongo-driver/bson"

var seatClasses = []string{"economy", "premium_economy", "business", "first"}

var seatSnapshotSchema = bson.M{
	"bsonType": "object",
	"required": []string{"number", "class", "price"},
	"properties": bson.M{
		"number": bson.M{
			"bsonType": "string",
			"pattern":  "^[1-9][0-9]{0,2}[A-K]$",
		},
		"class": bson.M{
			"bsonType": "string",
			"enum":     seatClasses,
		},
		"price": bson.M{
			"bsonType": []string{"long", "int"},
			"minimum":  0,
		},
	},
}

var SeatValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"flight_id",
			"number",
			"class",
			"price",
			"available",
			"blocked",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"flight_id": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 32,
			},

			"number": bson.M{
				"bsonType": "string",
				"pattern":  "^[1-9][0-9]{0,2}[A-K]$",
			},

			"class": bson.M{
				"bsonType": "string",
				"enum":     seatClasses,
			},

			"price": bson.M{
				"bsonType": []string{"long", "int"},
				"minimum":  0,
			},

			"available": bson.M{
				"bsonType": "bool",
			},

			"blocked": bson.M{
				"bsonType": "bool",
			},

			"block_reason": bson.M{
				"bsonType": "string",
				"enum":     []string{"maintenance", "cleaning", "damaged", "other"},
			},

			"hold_id": bson.M{
				"bsonType": "string",
			},

			"hold_expires_at": bson.M{
				"bsonType": "date",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
