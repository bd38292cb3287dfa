package main

import (
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/Harshitk-cp/agente-basico/internal/app"
	"github.com/Harshitk-cp/agente-basico/internal/config"
	"github.com/fatih/color"
)

var rule = strings.Repeat("=", 60)

// publicURL is the address users open in a browser; wildcard binds map to localhost.
func publicURL(settings *config.Settings) string {
	host := settings.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(settings.Port))
}

func printBanner(w io.Writer, a *app.App, settings *config.Settings) {
	ok := color.New(color.FgGreen, color.Bold).SprintFunc()
	title := color.New(color.FgCyan, color.Bold).SprintFunc()
	link := color.New(color.FgBlue, color.Underline).SprintFunc()

	db := a.DB.Info()
	dbLabel := db.Path
	if dbLabel == "" {
		dbLabel = db.Type
	}
	url := publicURL(settings)

	fmt.Fprintln(w, title(">>> Inicializando Agente Basico com Agno..."))
	fmt.Fprintf(w, "%s Agente '%s' (ID: %s) criado com sucesso!\n", ok("[OK]"), a.Agent.Name, a.Agent.ID)
	fmt.Fprintf(w, "Modelo: %s\n", a.Agent.Model.ID())
	fmt.Fprintf(w, "Database: %s\n", dbLabel)
	fmt.Fprintf(w, "Historico: ultimas %d interacoes\n", a.Agent.NumHistoryRuns)

	fmt.Fprintf(w, "\n%s\n", rule)
	fmt.Fprintln(w, title(">>> AgentOS iniciado com sucesso!"))
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "\n>>> Acesse a interface web em:")
	fmt.Fprintf(w, "    %s\n", link(url))
	fmt.Fprintln(w, "\n>>> Documentacao da API:")
	fmt.Fprintf(w, "    %s\n", link(url+"/docs"))
	fmt.Fprintln(w, "\n>>> Dicas:")
	fmt.Fprintln(w, "  - A interface permite conversar com o agente")
	fmt.Fprintf(w, "  - O historico e salvo automaticamente no %s\n", dbName(db.Type))
	fmt.Fprintln(w, "  - Sessoes longas sao sumarizadas automaticamente")
	fmt.Fprintln(w, "  - Use Ctrl+C para parar o servidor")
	fmt.Fprintf(w, "\n%s\n\n", rule)
}

func dbName(kind string) string {
	switch kind {
	case "postgres":
		return "PostgreSQL"
	default:
		return "SQLite"
	}
}

func printCheck(w io.Writer, a *app.App) {
	ok := color.New(color.FgGreen, color.Bold).SprintFunc()

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, ">>> Verificando construcao...")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%s Etapas: %s\n", ok("[OK]"), strings.Join(a.Steps, " -> "))
	fmt.Fprintf(w, "\nAgent Name: %s\n", a.Agent.Name)
	fmt.Fprintf(w, "Agent ID: %s\n", a.Agent.ID)
	fmt.Fprintf(w, "Model: %s\n", a.Agent.Model.ID())
	fmt.Fprintf(w, "AgentOS ID: %s\n", a.OS.ID)
	fmt.Fprintf(w, "\n%s\n", rule)
	fmt.Fprintf(w, "%s TUDO FUNCIONANDO!\n", ok("[SUCESSO]"))
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "\nPara rodar o servidor, execute:")
	fmt.Fprintln(w, "   agentos serve")
}
