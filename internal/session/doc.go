// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session ties the providers, model registries and user settings
// into one object.
//
// # Key Types
//
//   - Session: both providers, their registries, the selected provider
//     and the system prompt
//   - Monitor: periodic reachability probe of the selected provider
//
// # Usage
//
//	sess, err := session.New(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	_ = sess.RefreshModels(ctx)
//
//	s, err := sess.Chat(ctx, conv, session.ChatOptions{})
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//	for d, err := range s.Deltas() {
//	    ...
//	}
package session
