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

package common

import (
	"context"
	"fmt"

	"staking-ledger-go/internal/models"
	"staking-ledger-go/internal/store"

	"go.uber.org/zap"
)

// SelectUsers returns the users a command should report on. A non-empty
// email selects exactly one user; otherwise every user is returned,
// optionally narrowed to a role.
func SelectUsers(ctx context.Context, db store.LedgerStore, email, role string) ([]models.User, error) {
	if email != "" {
		zap.L().Debug("Looking up user by email", zap.String("email", email))
		user, err := db.GetUserByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("no user with email %s: %w", email, err)
		}
		return []models.User{*user}, nil
	}

	all, err := db.GetUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	if role == "" {
		return all, nil
	}

	selected := make([]models.User, 0, len(all))
	for _, u := range all {
		if u.Role == role {
			selected = append(selected, u)
		}
	}
	zap.L().Debug("Selected users", zap.String("role", role), zap.Int("count", len(selected)), zap.Int("total", len(all)))
	return selected, nil
}
