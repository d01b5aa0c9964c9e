// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - Store: registry de limiters por formato de regra, com janitor
//   - TrustStore: trust score em memória, particionado por hash do identificador
//   - ConfigStore: regra default + regras por identificador
//   - stats: memória, Redis, Prometheus e fan-out
//   - LoadRuleFile: carga inicial de regras a partir de YAML
package infra
