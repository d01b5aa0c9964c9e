// Package domain define contratos e tipos de domínio para a admissão adaptativa:
// regras de rate limit, trust score, resultado de consumo e decisões.
//
// Este pacote não depende de net/http nem de implementações concretas.
// A intenção é permitir testes de unidade puros e desacoplar regras de negócio
// de detalhes de infraestrutura.
package domain
