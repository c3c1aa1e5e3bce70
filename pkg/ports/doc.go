/*
Package ports defines the interfaces (ports) that decouple the Arbor engine
from concrete infrastructure, following Hexagonal Architecture.

The engine core depends only on these interfaces; adapters under
pkg/adapters provide the concrete backends (memory, file, redis). The
package also ships a reusable contract test suite (RunStoreContract) so
every adapter is verified against the same semantics.
*/
package ports
