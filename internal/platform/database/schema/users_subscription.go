// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// UserSubscriptionTable represents the 'users.subscription' table
type UserSubscriptionTable struct {
	Table      string
	Subscriber string
	Channel    string
	CreatedAt  string
}

// UserSubscription is the schema definition for users.subscription.
// Subscriber follows Channel; both reference users.account.
var UserSubscription = UserSubscriptionTable{
	Table:      "users.subscription",
	Subscriber: "subscriberid",
	Channel:    "channelid",
	CreatedAt:  "createdat",
}
