// Package ratelimit fornece adapters HTTP (net/http) para a admissão adaptativa.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (resolução de regra, admissão, administração) sem net/http
//   - infra: implementações concretas (limiters, trust score, config, stats)
//   - ratelimit (este pacote): middlewares HTTP + rotas admin + extração de chave/tipo
//     + tradução para status/headers/JSON
//
// Fluxo no gateway:
//
//  1. Extrai a chave do cliente (x-api-key, XFF ou IP)
//  2. Marca o tipo da requisição (leitura ou envio de dados)
//  3. Chama a camada application para obter a decisão
//  4. Se bloqueado, responde 429 com retryAfterSeconds e a classe da regra
//  5. Se permitido, chama o próximo handler (ex: reverse proxy)
//
// Variáveis de ambiente do binário gateway (cmd/gateway) controlam o comportamento,
// como RATE_DEFAULT, RATE_RULES_FILE, ADMIN_API_KEY e REWARD_PATHS.
package ratelimit
