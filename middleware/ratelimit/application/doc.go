// Package application contém os casos de uso da admissão adaptativa.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: Service.Admit(id, kind) resolve a regra, consome no limiter e devolve
// uma Decision; AdminService altera a configuração e invalida os limiters.
package application
