package connsdk

// Host-side contract notes:
//
// The gateway host owns everything outside this SDK: configuration
// persistence, the family registry population, the external API/RPC surface,
// and the fan-out of PointValues.
//
// Startup sequence the host must follow:
//
// 1. Register every compiled-in family (family packages expose a Register
//    helper) before reading configuration.
// 2. For each ConnectionDef, resolve the family with MatchFamily (the
//    partition check that every device type of the connection belongs to one
//    family), then decode Params via Family.NewConfig and the points via
//    Family.NewTarget.
// 3. Call Family.Init for every connection and wait for all of them before
//    starting any runner or accepting external requests. A failed Init is
//    fatal to that connection only; the others proceed.
// 4. Call Driver.InitTargets with the artifact's Stats and the typed
//    targets, then hand artifact + targets to a ConnectionRunner.
//
// External requests enter through ConnectionRunner.Submit; statistics leave
// through GatewayStatsServer (hostrpc) backed by each artifact's
// ConnectionStats. Points a family dropped in InitTargets simply do not
// exist to the host: not polled, not queryable.
//
// This file is documentation-only (no runtime code required).
