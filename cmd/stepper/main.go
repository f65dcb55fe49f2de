// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command stepper turns textbook algorithms into step traces and plays
// them back.
//
// Usage:
//
//	stepper families
//	stepper run stack PUSH --values 1,2 --value 3
//	stepper play sorting BUBBLE --values 5,1,4,2 --period 250ms
//	stepper interactive
//	stepper serve
//	stepper state list
//
// Example requests against a running server:
//
//	# Create a structure
//	curl -X POST http://127.0.0.1:12230/v1/stepper/structures \
//	  -H "Content-Type: application/json" \
//	  -d '{"name": "s", "family": "stack", "values": [1, 2], "capacity": 4}'
//
//	# Launch an operation and play it
//	curl -X POST http://127.0.0.1:12230/v1/stepper/structures/s/run \
//	  -d '{"op": "PUSH", "params": {"value": 3}, "autoplay": true}'
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/AleutianAI/AlgoTrace/pkg/ux"
)

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}
}
