// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

// MemoryFootprintProvider is any type that can report its own approximate
// in-memory size. It is embedded into merkletree.Storage, so every storage
// implementation (storage/pebblestore) reports one; Tree.GetRamInfo does
// not include it and covers only the node cache, the key-data cache and the
// hanging-node registry.
type MemoryFootprintProvider interface {
	GetMemoryFootprint() *MemoryFootprint
}

