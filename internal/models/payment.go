/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import "time"

const (
	PaystackChargeSuccess = "charge.success"

	PaymentPurposeActivation = "activation"
	PaymentPurposeTopUp      = "top_up"
)

// PaystackMetadata is what the app attaches when it initializes a charge
type PaystackMetadata struct {
	UserId  string `json:"userId"`
	Purpose string `json:"type"`
}

// PaystackCharge represents the data block of a Paystack charge event.
// Amount is in kobo.
type PaystackCharge struct {
	Id        int64            `json:"id"`
	Reference string           `json:"reference"`
	Status    string           `json:"status"`
	Amount    int64            `json:"amount"`
	Currency  string           `json:"currency"`
	PaidAt    time.Time        `json:"paid_at"`
	Metadata  PaystackMetadata `json:"metadata"`
}

// PaystackEvent represents a webhook delivery from Paystack
type PaystackEvent struct {
	Event string         `json:"event"`
	Data  PaystackCharge `json:"data"`
}
